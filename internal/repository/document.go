package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/digiglu/api-api/internal/domain/filter"
	"github.com/digiglu/api-api/internal/domain/model"
)

// Коллекции документного хранилища.
const (
	CollectionExperiments = "experiments"
	CollectionCollections = "apiCollection"
	CollectionSchemas     = "schemas"
)

// Projection — список полей верхнего уровня, возвращаемых Find.
// nil — документ целиком. Поле id включается всегда.
type Projection []string

// ParseProjection разбирает параметр fields ("name,owner").
// Пустая строка — без проекции.
func ParseProjection(fields string) Projection {
	if strings.TrimSpace(fields) == "" {
		return nil
	}
	p := Projection{model.FieldID}
	for _, f := range strings.Split(fields, ",") {
		f = strings.TrimSpace(f)
		if f == "" || f == model.FieldID || f == model.FieldInternalID {
			continue
		}
		p = append(p, f)
	}
	return p
}

// DocumentRepository — доступ к документам коллекций.
type DocumentRepository interface {
	// Find возвращает все документы коллекции, удовлетворяющие предикату,
	// в порядке вставки. Служебный _id включён в каждый документ.
	Find(ctx context.Context, collection string, p filter.Predicate, proj Projection) ([]model.Document, error)
	// FindOne возвращает первый подходящий документ или ErrNotFound.
	FindOne(ctx context.Context, collection string, p filter.Predicate) (model.Document, error)
	// Insert сохраняет документ и возвращает его с присвоенным _id.
	// ErrConflict — id уже занят в коллекции.
	Insert(ctx context.Context, collection string, doc model.Document) (model.Document, error)
}

// documentRepo — реализация DocumentRepository через pgx.
type documentRepo struct {
	db DBTX
}

// NewDocumentRepository создаёт репозиторий документов.
func NewDocumentRepository(db DBTX) DocumentRepository {
	return &documentRepo{db: db}
}

// Find выполняет выборку с предикатом и проекцией.
func (r *documentRepo) Find(ctx context.Context, collection string, p filter.Predicate, proj Projection) ([]model.Document, error) {
	args := []any{collection}
	docExpr := "doc"
	if proj != nil {
		args = append(args, []string(proj))
		docExpr = fmt.Sprintf(
			`COALESCE((SELECT jsonb_object_agg(e.key, e.value) FROM jsonb_each(doc) e WHERE e.key = ANY($%d::text[])), '{}'::jsonb)`,
			len(args),
		)
	}

	where, whereArgs, err := buildWhere(p, len(args)+1)
	if err != nil {
		return nil, err
	}
	args = append(args, whereArgs...)

	query := fmt.Sprintf(
		`SELECT _id, %s FROM documents WHERE collection = $1%s ORDER BY _id`,
		docExpr, where,
	)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("ошибка выборки из %s: %w", collection, err)
	}
	defer rows.Close()

	docs := []model.Document{}
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("ошибка чтения документа %s: %w", collection, err)
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ошибка итерации %s: %w", collection, err)
	}
	return docs, nil
}

// FindOne возвращает первый подходящий документ.
func (r *documentRepo) FindOne(ctx context.Context, collection string, p filter.Predicate) (model.Document, error) {
	where, args, err := buildWhere(p, 2)
	if err != nil {
		return nil, err
	}
	query := fmt.Sprintf(
		`SELECT _id, doc FROM documents WHERE collection = $1%s ORDER BY _id LIMIT 1`,
		where,
	)

	doc, err := scanDocument(r.db.QueryRow(ctx, query, append([]any{collection}, args...)...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ошибка получения документа %s: %w", collection, err)
	}
	return doc, nil
}

// Insert сохраняет документ. Служебный _id входного документа игнорируется.
func (r *documentRepo) Insert(ctx context.Context, collection string, doc model.Document) (model.Document, error) {
	stored := doc.Clone()
	delete(stored, model.FieldInternalID)

	data, err := json.Marshal(stored)
	if err != nil {
		return nil, fmt.Errorf("ошибка сериализации документа: %w", err)
	}

	var internalID int64
	err = r.db.QueryRow(ctx,
		`INSERT INTO documents (collection, doc) VALUES ($1, $2::jsonb) RETURNING _id`,
		collection, string(data),
	).Scan(&internalID)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrConflict
		}
		return nil, fmt.Errorf("ошибка сохранения документа в %s: %w", collection, err)
	}

	stored[model.FieldInternalID] = internalID
	return stored, nil
}

// scanDocument читает строку (_id, doc) в документ со служебным _id.
func scanDocument(row pgx.Row) (model.Document, error) {
	var (
		internalID int64
		raw        []byte
	)
	if err := row.Scan(&internalID, &raw); err != nil {
		return nil, err
	}
	doc := model.Document{}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("некорректный JSON документа _id=%d: %w", internalID, err)
	}
	doc[model.FieldInternalID] = internalID
	return doc, nil
}

// buildWhere транслирует предикат в SQL-условие, начинающееся с " AND ".
// argStart — номер первого плейсхолдера. Имена полей и значения передаются
// только через параметры.
func buildWhere(p filter.Predicate, argStart int) (string, []any, error) {
	var (
		sb   strings.Builder
		args []any
		n    = argStart
	)

	clauseSQL := func(c filter.Clause) (string, error) {
		switch c.Op {
		case filter.OpEq:
			data, err := json.Marshal(map[string]any{c.Field: c.Value})
			if err != nil {
				return "", fmt.Errorf("условие %s: %w", c.Field, err)
			}
			args = append(args, string(data))
			s := fmt.Sprintf("doc @> $%d::jsonb", n)
			n++
			return s, nil
		case filter.OpIn:
			values, ok := c.Value.([]string)
			if !ok {
				return "", fmt.Errorf("условие %s: ожидался []string, получен %T", c.Field, c.Value)
			}
			args = append(args, c.Field, values)
			s := fmt.Sprintf("doc->>($%d::text) = ANY($%d::text[])", n, n+1)
			n += 2
			return s, nil
		default:
			return "", fmt.Errorf("неизвестный оператор %q", c.Op)
		}
	}

	for _, c := range p.Match {
		s, err := clauseSQL(c)
		if err != nil {
			return "", nil, err
		}
		sb.WriteString(" AND ")
		sb.WriteString(s)
	}

	if len(p.AnyOf) > 0 {
		parts := make([]string, 0, len(p.AnyOf))
		for _, c := range p.AnyOf {
			s, err := clauseSQL(c)
			if err != nil {
				return "", nil, err
			}
			parts = append(parts, s)
		}
		sb.WriteString(" AND (")
		sb.WriteString(strings.Join(parts, " OR "))
		sb.WriteString(")")
	}

	return sb.String(), args, nil
}
