package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/lib/pq"

	"catalog-builder-service/internal/domain"
	"catalog-builder-service/internal/reconcile"
)

// childTable describes an ordered child collection stored in its own table.
// Rows are read as: id, parent, columns..., created_at, updated_at.
type childTable[T reconcile.Row] struct {
	name      string
	parentCol string
	columns   []string
	orderBy   string
	values    func(T) []any
	scan      func(scanner) (T, error)
}

func (t *childTable[T]) selectQuery(where string) string {
	return fmt.Sprintf("SELECT id, %s, %s, created_at, updated_at FROM %s WHERE %s ORDER BY %s",
		t.parentCol, strings.Join(t.columns, ", "), t.name, where, t.orderBy)
}

func (t *childTable[T]) collect(rows *sql.Rows) ([]T, error) {
	defer rows.Close()
	out := []T{}
	for rows.Next() {
		r, err := t.scan(rows)
		if err != nil {
			return nil, fmt.Errorf("store: failed to scan %s row: %w", t.name, err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: %s iteration error: %w", t.name, err)
	}
	return out, nil
}

// list returns every row under parentID.
func (t *childTable[T]) list(ctx context.Context, q querier, parentID string) ([]T, error) {
	rows, err := q.QueryContext(ctx, t.selectQuery(t.parentCol+" = $1"), parentID)
	if err != nil {
		return nil, fmt.Errorf("store: failed to query %s: %w", t.name, err)
	}
	return t.collect(rows)
}

// listIn returns every row under any of parentIDs.
func (t *childTable[T]) listIn(ctx context.Context, q querier, parentIDs []string) ([]T, error) {
	if len(parentIDs) == 0 {
		return []T{}, nil
	}
	rows, err := q.QueryContext(ctx, t.selectQuery(t.parentCol+" = ANY($1)"), pq.Array(parentIDs))
	if err != nil {
		return nil, fmt.Errorf("store: failed to query %s: %w", t.name, err)
	}
	return t.collect(rows)
}

// insert writes rows in one statement under fresh ids and returns those ids
// in row order. Ids carried by the rows are ignored.
func (t *childTable[T]) insert(ctx context.Context, q querier, parentID string, rows []T, newID func() string) ([]string, error) {
	if len(rows) == 0 {
		return nil, nil
	}
	cols := append([]string{"id", t.parentCol}, t.columns...)

	var sb strings.Builder
	fmt.Fprintf(&sb, "INSERT INTO %s (%s) VALUES ", t.name, strings.Join(cols, ", "))

	args := make([]any, 0, len(rows)*len(cols))
	ids := make([]string, 0, len(rows))
	argID := 1
	for i, row := range rows {
		if i > 0 {
			sb.WriteString(", ")
		}
		id := newID()
		ids = append(ids, id)
		vals := append([]any{id, parentID}, t.values(row)...)
		placeholders := make([]string, len(vals))
		for j := range vals {
			placeholders[j] = fmt.Sprintf("$%d", argID)
			argID++
		}
		sb.WriteString("(" + strings.Join(placeholders, ", ") + ")")
		args = append(args, vals...)
	}

	if _, err := q.ExecContext(ctx, sb.String(), args...); err != nil {
		return nil, fmt.Errorf("store: failed to insert into %s: %w", t.name, err)
	}
	return ids, nil
}

func (t *childTable[T]) delete(ctx context.Context, q querier, parentID string, rows []T) error {
	ids := make([]string, len(rows))
	for i, r := range rows {
		ids[i] = r.Key()
	}
	query := fmt.Sprintf("DELETE FROM %s WHERE id = ANY($1) AND %s = $2", t.name, t.parentCol)
	if _, err := q.ExecContext(ctx, query, pq.Array(ids), parentID); err != nil {
		return fmt.Errorf("store: failed to delete from %s: %w", t.name, err)
	}
	return nil
}

// update overwrites every column of row and stamps updated_at.
func (t *childTable[T]) update(ctx context.Context, q querier, parentID string, row T) error {
	sets := make([]string, len(t.columns))
	for i, c := range t.columns {
		sets[i] = fmt.Sprintf("%s = $%d", c, i+1)
	}
	n := len(t.columns)
	query := fmt.Sprintf("UPDATE %s SET %s, updated_at = NOW() WHERE id = $%d AND %s = $%d",
		t.name, strings.Join(sets, ", "), n+1, t.parentCol, n+2)

	args := append(t.values(row), row.Key(), parentID)
	res, err := q.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("store: failed to update %s row %s: %w", t.name, row.Key(), err)
	}
	affected, err := rowsAffected(res, "update "+t.name)
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("%w: %s row %s", ErrUpdateFailed, t.name, row.Key())
	}
	return nil
}

// tableExecutor applies a reconciliation plan to one parent's rows.
type tableExecutor[T reconcile.Row] struct {
	table    *childTable[T]
	q        querier
	parentID string
	newID    func() string
}

func (e tableExecutor[T]) Delete(ctx context.Context, rows []T) error {
	return e.table.delete(ctx, e.q, e.parentID, rows)
}

func (e tableExecutor[T]) Insert(ctx context.Context, rows []T) error {
	_, err := e.table.insert(ctx, e.q, e.parentID, rows, e.newID)
	return err
}

func (e tableExecutor[T]) Update(ctx context.Context, row T) error {
	return e.table.update(ctx, e.q, e.parentID, row)
}

func executorFor[T reconcile.Row](s *PostgresStore, table *childTable[T], q querier, parentID string) tableExecutor[T] {
	return tableExecutor[T]{table: table, q: q, parentID: parentID, newID: s.newID}
}

// reconcileChildren brings the stored collection from existing to desired and
// records the outcome.
func reconcileChildren[T reconcile.Row](ctx context.Context, s *PostgresStore, collection string, ex reconcile.Executor[T], existing, desired []T) error {
	plan := reconcile.Diff(existing, desired)
	if err := reconcile.Apply(ctx, plan, ex); err != nil {
		s.metrics.ReconcileFailed(collection)
		return fmt.Errorf("store: reconcile %s failed: %w", collection, err)
	}
	deleted, inserted, updated := plan.Counts()
	s.metrics.ObservePlan(collection, deleted, inserted, updated)
	return nil
}

// syncTable reconciles a flat child collection of parentID. A nil desired
// slice leaves the collection untouched.
func syncTable[T reconcile.Row](ctx context.Context, s *PostgresStore, q querier, table *childTable[T], parentID string, desired []T, fresh bool) error {
	if desired == nil {
		return nil
	}
	var existing []T
	if !fresh {
		var err error
		if existing, err = table.list(ctx, q, parentID); err != nil {
			return err
		}
	}
	return reconcileChildren(ctx, s, table.name, executorFor(s, table, q, parentID), existing, desired)
}

// sectionExecutor reconciles sections and, nested, their product joins.
type sectionExecutor struct {
	tableExecutor[domain.CatalogSection]
	store    *PostgresStore
	existing map[string]domain.CatalogSection
}

// Insert writes new sections and their products directly; a new section has
// no stored joins to reconcile against.
func (e sectionExecutor) Insert(ctx context.Context, rows []domain.CatalogSection) error {
	ids, err := e.table.insert(ctx, e.q, e.parentID, rows, e.newID)
	if err != nil {
		return err
	}
	for i, section := range rows {
		products := withIndexOrder(reconcile.Filter(section.Products))
		if len(products) == 0 {
			continue
		}
		if _, err := sectionProductsTable.insert(ctx, e.q, ids[i], products, e.newID); err != nil {
			return err
		}
		e.store.metrics.ObservePlan(sectionProductsTable.name, 0, len(products), 0)
	}
	return nil
}

// Update overwrites the section and reconciles its joins against the rows
// loaded with it. Nil Products leaves the joins untouched.
func (e sectionExecutor) Update(ctx context.Context, row domain.CatalogSection) error {
	if err := e.tableExecutor.Update(ctx, row); err != nil {
		return err
	}
	if row.Products == nil {
		return nil
	}
	ex := executorFor(e.store, sectionProductsTable, e.q, row.ID)
	return reconcileChildren(ctx, e.store, sectionProductsTable.name, reconcile.Executor[domain.CatalogSectionProduct](ex),
		e.existing[row.ID].Products, row.Products)
}

// withIndexOrder gives joins without an explicit sort order their list position.
func withIndexOrder(products []domain.CatalogSectionProduct) []domain.CatalogSectionProduct {
	for i := range products {
		if products[i].SortOrder == 0 {
			products[i].SortOrder = i
		}
	}
	return products
}

// loadSections returns the catalog's sections with their product joins attached.
func loadSections(ctx context.Context, q querier, catalogID string) ([]domain.CatalogSection, error) {
	sections, err := catalogSectionsTable.list(ctx, q, catalogID)
	if err != nil {
		return nil, err
	}
	ids := make([]string, len(sections))
	for i, sec := range sections {
		ids[i] = sec.ID
	}
	joins, err := sectionProductsTable.listIn(ctx, q, ids)
	if err != nil {
		return nil, err
	}
	bySection := map[string][]domain.CatalogSectionProduct{}
	for _, j := range joins {
		bySection[j.SectionID] = append(bySection[j.SectionID], j)
	}
	for i := range sections {
		sections[i].Products = bySection[sections[i].ID]
		if sections[i].Products == nil {
			sections[i].Products = []domain.CatalogSectionProduct{}
		}
	}
	return sections, nil
}

// syncSections reconciles sections and their product joins for a catalog.
func syncSections(ctx context.Context, s *PostgresStore, q querier, catalogID string, desired []domain.CatalogSection, fresh bool) error {
	if desired == nil {
		return nil
	}
	var existing []domain.CatalogSection
	if !fresh {
		var err error
		if existing, err = loadSections(ctx, q, catalogID); err != nil {
			return err
		}
	}
	byID := make(map[string]domain.CatalogSection, len(existing))
	for _, sec := range existing {
		byID[sec.ID] = sec
	}
	ex := sectionExecutor{
		tableExecutor: executorFor(s, catalogSectionsTable, q, catalogID),
		store:         s,
		existing:      byID,
	}
	return reconcileChildren(ctx, s, catalogSectionsTable.name, reconcile.Executor[domain.CatalogSection](ex), existing, desired)
}

var socialLinksTable = &childTable[domain.BusinessSocialLink]{
	name:      "business_social_links",
	parentCol: "business_id",
	columns:   []string{"platform", "url", "sort_order", "active"},
	orderBy:   "sort_order, created_at",
	values: func(l domain.BusinessSocialLink) []any {
		return []any{l.Platform, l.URL, l.SortOrder, l.Active}
	},
	scan: func(sc scanner) (domain.BusinessSocialLink, error) {
		var l domain.BusinessSocialLink
		err := sc.Scan(&l.ID, &l.BusinessID, &l.Platform, &l.URL, &l.SortOrder, &l.Active, &l.CreatedAt, &l.UpdatedAt)
		return l, err
	},
}

var productImagesTable = &childTable[domain.ProductImage]{
	name:      "product_images",
	parentCol: "product_id",
	columns:   []string{"image", "caption", "display_order", "is_primary"},
	orderBy:   "display_order, created_at",
	values: func(i domain.ProductImage) []any {
		return []any{i.Image, i.Caption, i.DisplayOrder, i.IsPrimary}
	},
	scan: func(sc scanner) (domain.ProductImage, error) {
		var i domain.ProductImage
		err := sc.Scan(&i.ID, &i.ProductID, &i.Image, &i.Caption, &i.DisplayOrder, &i.IsPrimary, &i.CreatedAt, &i.UpdatedAt)
		return i, err
	},
}

var productPricesTable = &childTable[domain.ProductPrice]{
	name:      "product_prices",
	parentCol: "product_id",
	columns:   []string{"label", "price", "sort_order", "active"},
	orderBy:   "sort_order, created_at",
	values: func(p domain.ProductPrice) []any {
		return []any{p.Label, p.Price, p.SortOrder, p.Active}
	},
	scan: func(sc scanner) (domain.ProductPrice, error) {
		var p domain.ProductPrice
		err := sc.Scan(&p.ID, &p.ProductID, &p.Label, &p.Price, &p.SortOrder, &p.Active, &p.CreatedAt, &p.UpdatedAt)
		return p, err
	},
}

var catalogSlidesTable = &childTable[domain.CatalogSlide]{
	name:      "catalog_slides",
	parentCol: "catalog_id",
	columns:   []string{"image", "image_caption", "title", "description", "link_url", "sort_order", "active"},
	orderBy:   "sort_order, created_at",
	values: func(s domain.CatalogSlide) []any {
		return []any{s.Image, s.ImageCaption, s.Title, s.Description, s.LinkURL, s.SortOrder, s.Active}
	},
	scan: func(sc scanner) (domain.CatalogSlide, error) {
		var s domain.CatalogSlide
		err := sc.Scan(&s.ID, &s.CatalogID, &s.Image, &s.ImageCaption, &s.Title, &s.Description, &s.LinkURL,
			&s.SortOrder, &s.Active, &s.CreatedAt, &s.UpdatedAt)
		return s, err
	},
}

var catalogSectionsTable = &childTable[domain.CatalogSection]{
	name:      "catalog_sections",
	parentCol: "catalog_id",
	columns:   []string{"title", "description", "sort_order", "active"},
	orderBy:   "sort_order, created_at",
	values: func(s domain.CatalogSection) []any {
		return []any{s.Title, s.Description, s.SortOrder, s.Active}
	},
	scan: func(sc scanner) (domain.CatalogSection, error) {
		var s domain.CatalogSection
		err := sc.Scan(&s.ID, &s.CatalogID, &s.Title, &s.Description, &s.SortOrder, &s.Active, &s.CreatedAt, &s.UpdatedAt)
		return s, err
	},
}

var sectionProductsTable = &childTable[domain.CatalogSectionProduct]{
	name:      "catalog_section_products",
	parentCol: "catalog_section_id",
	columns:   []string{"product_id", "sort_order", "active"},
	orderBy:   "sort_order, created_at",
	values: func(p domain.CatalogSectionProduct) []any {
		return []any{p.ProductID, p.SortOrder, p.Active}
	},
	scan: func(sc scanner) (domain.CatalogSectionProduct, error) {
		var p domain.CatalogSectionProduct
		err := sc.Scan(&p.ID, &p.SectionID, &p.ProductID, &p.SortOrder, &p.Active, &p.CreatedAt, &p.UpdatedAt)
		return p, err
	},
}

var catalogContactsTable = &childTable[domain.CatalogContact]{
	name:      "catalog_contacts",
	parentCol: "catalog_id",
	columns:   []string{"label", "type", "value", "sort_order", "active"},
	orderBy:   "sort_order, created_at",
	values: func(c domain.CatalogContact) []any {
		return []any{c.Label, c.Type, c.Value, c.SortOrder, c.Active}
	},
	scan: func(sc scanner) (domain.CatalogContact, error) {
		var c domain.CatalogContact
		err := sc.Scan(&c.ID, &c.CatalogID, &c.Label, &c.Type, &c.Value, &c.SortOrder, &c.Active, &c.CreatedAt, &c.UpdatedAt)
		return c, err
	},
}
