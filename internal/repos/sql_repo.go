package repos

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"ppecatalog/internal/domain"
)

// SQL is the SQLite-backed store. It honours the same contract as Memory.
type SQL struct {
	db   *sqlx.DB
	opts options
}

var _ Store = (*SQL)(nil)

func NewSQL(db *sqlx.DB, opts ...Option) *SQL { return &SQL{db: db, opts: buildOptions(opts)} }

func (r *SQL) Close() error { return r.db.Close() }

const (
	categoryCols    = `id, name, description, slug, image_url`
	subCategoryCols = `id, name, category_id, slug, fields_json`
	productCols     = `id, name, description, price, image_url, is_new, brand, reference,
    images_json, specs_json, sub_category_id, docs_json`
	quoteCols        = `id, product_id, name, email, phone, message, quantity, status, created_at`
	notificationCols = `id, kind, recipient, reply_to, subject, body, status, attempts,
    last_error, next_attempt_at, created_at, sent_at`

	insertCategorySQL = `INSERT INTO categories(id, name, description, slug, image_url)
    VALUES (:id, :name, :description, :slug, :image_url)`
	insertSubCategorySQL = `INSERT INTO subcategories(id, name, category_id, slug, fields_json)
    VALUES (:id, :name, :category_id, :slug, :fields_json)`
	insertProductSQL = `INSERT INTO products(id, name, description, price, image_url, is_new, brand,
    reference, images_json, specs_json, sub_category_id, docs_json)
    VALUES (:id, :name, :description, :price, :image_url, :is_new, :brand,
    :reference, :images_json, :specs_json, :sub_category_id, :docs_json)`
	insertQuoteSQL = `INSERT INTO quotes(id, product_id, name, email, phone, message, quantity, status, created_at)
    VALUES (:id, :product_id, :name, :email, :phone, :message, :quantity, :status, :created_at)`
	insertNotificationSQL = `INSERT INTO outbox(id, kind, recipient, reply_to, subject, body, status,
    attempts, last_error, next_attempt_at, created_at, sent_at)
    VALUES (:id, :kind, :recipient, :reply_to, :subject, :body, :status,
    :attempts, :last_error, :next_attempt_at, :created_at, :sent_at)`
)

// ---------- Row mapping ----------

type subRow struct {
	ID         string `db:"id"`
	Name       string `db:"name"`
	CategoryID string `db:"category_id"`
	Slug       string `db:"slug"`
	FieldsJSON string `db:"fields_json"`
}

func subToRow(s domain.SubCategory) (subRow, error) {
	fields := s.SpecificationFields
	if fields == nil {
		fields = []domain.SpecificationField{}
	}
	fj, err := toJSON(fields)
	if err != nil {
		return subRow{}, err
	}
	return subRow{ID: s.ID, Name: s.Name, CategoryID: s.CategoryID, Slug: s.Slug, FieldsJSON: fj}, nil
}

func (row subRow) decode() (domain.SubCategory, error) {
	s := domain.SubCategory{ID: row.ID, Name: row.Name, CategoryID: row.CategoryID, Slug: row.Slug}
	if err := json.Unmarshal([]byte(row.FieldsJSON), &s.SpecificationFields); err != nil {
		return domain.SubCategory{}, fmt.Errorf("subcategory %s: fields: %w", row.ID, err)
	}
	if s.SpecificationFields == nil {
		s.SpecificationFields = []domain.SpecificationField{}
	}
	return s, nil
}

type productRow struct {
	ID            string  `db:"id"`
	Name          string  `db:"name"`
	Description   string  `db:"description"`
	Price         float64 `db:"price"`
	ImageURL      string  `db:"image_url"`
	IsNew         bool    `db:"is_new"`
	Brand         string  `db:"brand"`
	Reference     string  `db:"reference"`
	ImagesJSON    string  `db:"images_json"`
	SpecsJSON     string  `db:"specs_json"`
	SubCategoryID string  `db:"sub_category_id"`
	DocsJSON      string  `db:"docs_json"`
}

func productToRow(p domain.Product) (productRow, error) {
	row := productRow{
		ID: p.ID, Name: p.Name, Description: p.Description, Price: p.Price, ImageURL: p.ImageURL,
		IsNew: p.IsNew, Brand: p.Brand, Reference: p.Reference, SubCategoryID: p.SubCategoryID,
	}
	var err error
	if row.ImagesJSON, err = toJSON(p.Images); err != nil {
		return productRow{}, err
	}
	if row.SpecsJSON, err = toJSON(p.Specifications); err != nil {
		return productRow{}, err
	}
	if row.DocsJSON, err = toJSON(p.Documentation); err != nil {
		return productRow{}, err
	}
	return row, nil
}

func (row productRow) decode() (domain.Product, error) {
	p := domain.Product{
		ID: row.ID, Name: row.Name, Description: row.Description, Price: row.Price, ImageURL: row.ImageURL,
		IsNew: row.IsNew, Brand: row.Brand, Reference: row.Reference, SubCategoryID: row.SubCategoryID,
	}
	if err := json.Unmarshal([]byte(row.ImagesJSON), &p.Images); err != nil {
		return domain.Product{}, fmt.Errorf("product %s: images: %w", row.ID, err)
	}
	if err := json.Unmarshal([]byte(row.SpecsJSON), &p.Specifications); err != nil {
		return domain.Product{}, fmt.Errorf("product %s: specifications: %w", row.ID, err)
	}
	if err := json.Unmarshal([]byte(row.DocsJSON), &p.Documentation); err != nil {
		return domain.Product{}, fmt.Errorf("product %s: documentation: %w", row.ID, err)
	}
	return normalizeProduct(p), nil
}

func decodeProducts(rows []productRow) ([]domain.Product, error) {
	out := make([]domain.Product, 0, len(rows))
	for _, row := range rows {
		p, err := row.decode()
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

func notFound(err error) bool { return errors.Is(err, sql.ErrNoRows) }

// ---------- Categories ----------

func (r *SQL) Categories(ctx context.Context) ([]domain.Category, error) {
	out := []domain.Category{}
	err := r.db.SelectContext(ctx, &out, `SELECT `+categoryCols+` FROM categories ORDER BY rowid`)
	return out, err
}

func (r *SQL) CategoryBySlug(ctx context.Context, slug string) (*domain.Category, error) {
	var c domain.Category
	err := r.db.GetContext(ctx, &c, `SELECT `+categoryCols+` FROM categories WHERE slug = ? ORDER BY rowid LIMIT 1`, slug)
	if notFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *SQL) AddCategory(ctx context.Context, c domain.Category) (domain.Category, error) {
	c.ID = r.opts.newID()
	if _, err := r.db.NamedExecContext(ctx, insertCategorySQL, c); err != nil {
		return domain.Category{}, err
	}
	return c, nil
}

func (r *SQL) UpdateCategory(ctx context.Context, id string, p domain.CategoryPatch) (*domain.Category, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	var c domain.Category
	err = tx.GetContext(ctx, &c, `SELECT `+categoryCols+` FROM categories WHERE id = ?`, id)
	if notFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	p.Apply(&c)
	if _, err := tx.NamedExecContext(ctx, `UPDATE categories
    SET name = :name, description = :description, slug = :slug, image_url = :image_url
    WHERE id = :id`, c); err != nil {
		return nil, err
	}
	return &c, tx.Commit()
}

func (r *SQL) DeleteCategory(ctx context.Context, id string) (bool, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return false, err
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, `DELETE FROM categories WHERE id = ?`, id)
	if err != nil {
		return false, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return false, nil
	}
	if r.opts.policy == CascadeProducts {
		if _, err := tx.ExecContext(ctx, `
      DELETE FROM products
      WHERE sub_category_id IN (SELECT id FROM subcategories WHERE category_id = ?)`, id); err != nil {
			return false, err
		}
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM subcategories WHERE category_id = ?`, id); err != nil {
		return false, err
	}
	return true, tx.Commit()
}

// ---------- Subcategories ----------

func (r *SQL) SubCategories(ctx context.Context, categoryID string) ([]domain.SubCategory, error) {
	var rows []subRow
	var err error
	if categoryID == "" {
		err = r.db.SelectContext(ctx, &rows, `SELECT `+subCategoryCols+` FROM subcategories ORDER BY rowid`)
	} else {
		err = r.db.SelectContext(ctx, &rows, `SELECT `+subCategoryCols+` FROM subcategories
    WHERE category_id = ? ORDER BY rowid`, categoryID)
	}
	if err != nil {
		return nil, err
	}
	out := make([]domain.SubCategory, 0, len(rows))
	for _, row := range rows {
		s, err := row.decode()
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

func (r *SQL) getSub(ctx context.Context, q sqlx.QueryerContext, id string) (*domain.SubCategory, error) {
	var row subRow
	err := sqlx.GetContext(ctx, q, &row, `SELECT `+subCategoryCols+` FROM subcategories WHERE id = ?`, id)
	if notFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	s, err := row.decode()
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *SQL) SubCategory(ctx context.Context, id string) (*domain.SubCategory, error) {
	return r.getSub(ctx, r.db, id)
}

func (r *SQL) SubCategoryBySlug(ctx context.Context, categoryID, slug string) (*domain.SubCategory, error) {
	var row subRow
	err := r.db.GetContext(ctx, &row, `SELECT `+subCategoryCols+` FROM subcategories
    WHERE category_id = ? AND slug = ? ORDER BY rowid LIMIT 1`, categoryID, slug)
	if notFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	s, err := row.decode()
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *SQL) AddSubCategory(ctx context.Context, s domain.SubCategory) (domain.SubCategory, error) {
	s.ID = r.opts.newID()
	if s.SpecificationFields == nil {
		s.SpecificationFields = []domain.SpecificationField{}
	}
	row, err := subToRow(s)
	if err != nil {
		return domain.SubCategory{}, err
	}
	if _, err := r.db.NamedExecContext(ctx, insertSubCategorySQL, row); err != nil {
		return domain.SubCategory{}, err
	}
	return s, nil
}

// mutateSub loads a subcategory, lets fn change it and writes it back in one
// transaction. It reports false when the subcategory does not exist.
func (r *SQL) mutateSub(ctx context.Context, id string, fn func(*domain.SubCategory) bool) (*domain.SubCategory, bool, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, false, err
	}
	defer func() { _ = tx.Rollback() }()

	s, err := r.getSub(ctx, tx, id)
	if err != nil || s == nil {
		return nil, false, err
	}
	if !fn(s) {
		return s, false, nil
	}
	row, err := subToRow(*s)
	if err != nil {
		return nil, false, err
	}
	if _, err := tx.NamedExecContext(ctx, `UPDATE subcategories
    SET name = :name, category_id = :category_id, slug = :slug, fields_json = :fields_json
    WHERE id = :id`, row); err != nil {
		return nil, false, err
	}
	return s, true, tx.Commit()
}

func (r *SQL) UpdateSubCategory(ctx context.Context, id string, p domain.SubCategoryPatch) (*domain.SubCategory, error) {
	s, ok, err := r.mutateSub(ctx, id, func(s *domain.SubCategory) bool {
		p.Apply(s)
		return true
	})
	if err != nil || !ok {
		return nil, err
	}
	return s, nil
}

func (r *SQL) DeleteSubCategory(ctx context.Context, id string) (bool, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return false, err
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, `DELETE FROM subcategories WHERE id = ?`, id)
	if err != nil {
		return false, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return false, nil
	}
	if r.opts.policy == CascadeProducts {
		if _, err := tx.ExecContext(ctx, `DELETE FROM products WHERE sub_category_id = ?`, id); err != nil {
			return false, err
		}
	}
	return true, tx.Commit()
}

// ---------- Products ----------

func (r *SQL) Products(ctx context.Context, categoryID, subCategoryID string) ([]domain.Product, error) {
	var rows []productRow
	var err error
	switch {
	case subCategoryID != "":
		err = r.db.SelectContext(ctx, &rows, `SELECT `+productCols+` FROM products
    WHERE sub_category_id = ? ORDER BY rowid`, subCategoryID)
	case categoryID != "":
		err = r.db.SelectContext(ctx, &rows, `SELECT `+productCols+` FROM products
    WHERE sub_category_id IN (SELECT id FROM subcategories WHERE category_id = ?)
    ORDER BY rowid`, categoryID)
	default:
		err = r.db.SelectContext(ctx, &rows, `SELECT `+productCols+` FROM products ORDER BY rowid`)
	}
	if err != nil {
		return nil, err
	}
	return decodeProducts(rows)
}

func (r *SQL) getProduct(ctx context.Context, q sqlx.QueryerContext, id string) (*domain.Product, error) {
	var row productRow
	err := sqlx.GetContext(ctx, q, &row, `SELECT `+productCols+` FROM products WHERE id = ?`, id)
	if notFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	p, err := row.decode()
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *SQL) Product(ctx context.Context, id string) (*domain.Product, error) {
	p, err := r.getProduct(ctx, r.db, id)
	if err != nil || p == nil {
		return nil, err
	}
	sub, err := r.getSub(ctx, r.db, p.SubCategoryID)
	if err != nil {
		return nil, err
	}
	if sub != nil {
		reshaped := reshapeSpecifications(*p, *sub)
		return &reshaped, nil
	}
	return p, nil
}

func (r *SQL) AddProduct(ctx context.Context, p domain.Product) (domain.Product, error) {
	p = normalizeProduct(p)
	p.ID = r.opts.newID()
	row, err := productToRow(p)
	if err != nil {
		return domain.Product{}, err
	}
	if _, err := r.db.NamedExecContext(ctx, insertProductSQL, row); err != nil {
		return domain.Product{}, err
	}
	return p, nil
}

func (r *SQL) UpdateProduct(ctx context.Context, id string, patch domain.ProductPatch) (*domain.Product, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	p, err := r.getProduct(ctx, tx, id)
	if err != nil || p == nil {
		return nil, err
	}
	patch.Apply(p)
	*p = normalizeProduct(*p)
	row, err := productToRow(*p)
	if err != nil {
		return nil, err
	}
	if _, err := tx.NamedExecContext(ctx, `UPDATE products SET
    name = :name, description = :description, price = :price, image_url = :image_url,
    is_new = :is_new, brand = :brand, reference = :reference, images_json = :images_json,
    specs_json = :specs_json, sub_category_id = :sub_category_id, docs_json = :docs_json
    WHERE id = :id`, row); err != nil {
		return nil, err
	}
	return p, tx.Commit()
}

func (r *SQL) DeleteProduct(ctx context.Context, id string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM products WHERE id = ?`, id)
	if err != nil {
		return false, err
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

// ---------- Quotes ----------

func (r *SQL) Quotes(ctx context.Context) ([]domain.Quote, error) {
	out := []domain.Quote{}
	err := r.db.SelectContext(ctx, &out, `SELECT `+quoteCols+` FROM quotes ORDER BY rowid`)
	return out, err
}

func (r *SQL) Quote(ctx context.Context, id string) (*domain.Quote, error) {
	var q domain.Quote
	err := r.db.GetContext(ctx, &q, `SELECT `+quoteCols+` FROM quotes WHERE id = ?`, id)
	if notFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &q, nil
}

func (r *SQL) AddQuote(ctx context.Context, q domain.Quote) (domain.Quote, error) {
	q = newQuote(q, r.opts)
	if _, err := r.db.NamedExecContext(ctx, insertQuoteSQL, q); err != nil {
		return domain.Quote{}, err
	}
	return q, nil
}

func (r *SQL) UpdateQuoteStatus(ctx context.Context, id string, status domain.QuoteStatus) (*domain.Quote, error) {
	if !status.Valid() {
		return nil, ErrUnknownStatus
	}
	res, err := r.db.ExecContext(ctx, `UPDATE quotes SET status = ? WHERE id = ?`, status, id)
	if err != nil {
		return nil, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, nil
	}
	return r.Quote(ctx, id)
}

// ---------- Specification fields ----------

func (r *SQL) SpecificationFields(ctx context.Context, subCategoryID string) ([]domain.SpecificationField, error) {
	s, err := r.SubCategory(ctx, subCategoryID)
	if err != nil {
		return nil, err
	}
	if s == nil {
		return []domain.SpecificationField{}, nil
	}
	return s.SpecificationFields, nil
}

func (r *SQL) AddSpecificationField(ctx context.Context, subCategoryID string, f domain.SpecificationField) (*domain.SpecificationField, error) {
	f.ID = r.opts.newID()
	_, ok, err := r.mutateSub(ctx, subCategoryID, func(s *domain.SubCategory) bool {
		s.SpecificationFields = append(s.SpecificationFields, f)
		return true
	})
	if err != nil || !ok {
		return nil, err
	}
	return &f, nil
}

func (r *SQL) UpdateSpecificationField(ctx context.Context, subCategoryID, fieldID string, p domain.SpecificationFieldPatch) (*domain.SpecificationField, error) {
	var out domain.SpecificationField
	_, ok, err := r.mutateSub(ctx, subCategoryID, func(s *domain.SubCategory) bool {
		for i := range s.SpecificationFields {
			if s.SpecificationFields[i].ID == fieldID {
				p.Apply(&s.SpecificationFields[i])
				out = s.SpecificationFields[i]
				return true
			}
		}
		return false
	})
	if err != nil || !ok {
		return nil, err
	}
	return &out, nil
}

func (r *SQL) DeleteSpecificationField(ctx context.Context, subCategoryID, fieldID string) (bool, error) {
	_, ok, err := r.mutateSub(ctx, subCategoryID, func(s *domain.SubCategory) bool {
		for i, f := range s.SpecificationFields {
			if f.ID == fieldID {
				s.SpecificationFields = append(s.SpecificationFields[:i], s.SpecificationFields[i+1:]...)
				return true
			}
		}
		return false
	})
	return ok, err
}

// ---------- Outbox ----------

func (r *SQL) Enqueue(ctx context.Context, n domain.Notification) (domain.Notification, error) {
	n = newNotification(n, r.opts)
	if _, err := r.db.NamedExecContext(ctx, insertNotificationSQL, n); err != nil {
		return domain.Notification{}, err
	}
	return n, nil
}

func (r *SQL) Due(ctx context.Context, now time.Time, limit int) ([]domain.Notification, error) {
	if limit <= 0 {
		limit = 100
	}
	out := []domain.Notification{}
	err := r.db.SelectContext(ctx, &out, `SELECT `+notificationCols+` FROM outbox
    WHERE status = 'pending' AND next_attempt_at <= ?
    ORDER BY next_attempt_at, rowid
    LIMIT ?`, timestamp(now), limit)
	return out, err
}

func (r *SQL) MarkSent(ctx context.Context, id string, at time.Time) error {
	_, err := r.db.ExecContext(ctx, `UPDATE outbox
    SET status = 'sent', attempts = attempts + 1, last_error = '', sent_at = ?
    WHERE id = ?`, timestamp(at), id)
	return err
}

func (r *SQL) MarkRetry(ctx context.Context, id, lastErr string, next time.Time) error {
	_, err := r.db.ExecContext(ctx, `UPDATE outbox
    SET attempts = attempts + 1, last_error = ?, next_attempt_at = ?
    WHERE id = ?`, lastErr, timestamp(next), id)
	return err
}

func (r *SQL) MarkFailed(ctx context.Context, id, lastErr string) error {
	_, err := r.db.ExecContext(ctx, `UPDATE outbox
    SET status = 'failed', attempts = attempts + 1, last_error = ?
    WHERE id = ?`, lastErr, id)
	return err
}

func (r *SQL) Notifications(ctx context.Context) ([]domain.Notification, error) {
	out := []domain.Notification{}
	err := r.db.SelectContext(ctx, &out, `SELECT `+notificationCols+` FROM outbox ORDER BY rowid`)
	return out, err
}
