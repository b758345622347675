package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/recipebook/internal/model"
)

// collectionSpec はタグ・材料で共通のSQLを組み立てるためのテーブル情報。
type collectionSpec struct {
	kind       model.ItemKind
	table      string // tags / ingredients
	joinTable  string // recipe_tags / recipe_ingredients
	joinColumn string // tag_id / ingredient_id
}

var (
	tagSpec = collectionSpec{
		kind:       model.KindTag,
		table:      "tags",
		joinTable:  "recipe_tags",
		joinColumn: "tag_id",
	}
	ingredientSpec = collectionSpec{
		kind:       model.KindIngredient,
		table:      "ingredients",
		joinTable:  "recipe_ingredients",
		joinColumn: "ingredient_id",
	}
)

// queryRower はsql.DBとsql.Txの両方を受けるための最小インターフェース。
// get-or-createをレシピ作成トランザクションの内側でも使えるようにする。
type queryRower interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// getOrCreateItem は(owner, name)に一致するレコードを返し、なければ作成する。
// INSERT ON CONFLICT DO NOTHINGと再取得の組み合わせにより、同時実行でも
// 一意制約の下で1ペアにつき最大1件しか存在しない。
func getOrCreateItem(ctx context.Context, q queryRower, spec collectionSpec, userID, name string) (*model.OwnedItem, error) {
	item := &model.OwnedItem{}

	// 既存行が無ければ挿入してそのまま返す
	err := q.QueryRowContext(ctx,
		`INSERT INTO `+spec.table+` (id, user_id, name, created_at)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (user_id, name) DO NOTHING
		 RETURNING id, user_id, name, created_at`,
		uuid.New().String(), userID, name, time.Now().UTC(),
	).Scan(&item.ID, &item.UserID, &item.Name, &item.CreatedAt)

	if err == nil {
		return item, nil
	}
	if err != sql.ErrNoRows {
		return nil, fmt.Errorf("failed to insert %s: %w", spec.kind, err)
	}

	// 競合した場合は既存行を再取得する
	err = q.QueryRowContext(ctx,
		`SELECT id, user_id, name, created_at FROM `+spec.table+`
		 WHERE user_id = $1 AND name = $2`,
		userID, name,
	).Scan(&item.ID, &item.UserID, &item.Name, &item.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to refetch %s after conflict: %w", spec.kind, err)
	}

	return item, nil
}

// PostgresCollectionRepo はPostgreSQLを使用したタグ・材料リポジトリ。
// specの差し替えだけで両方のコレクションを扱う。
type PostgresCollectionRepo struct {
	db   *sql.DB
	spec collectionSpec
}

// NewPostgresTagRepo はタグ用のPostgresCollectionRepoを生成する。
func NewPostgresTagRepo(db *sql.DB) *PostgresCollectionRepo {
	return &PostgresCollectionRepo{db: db, spec: tagSpec}
}

// NewPostgresIngredientRepo は材料用のPostgresCollectionRepoを生成する。
func NewPostgresIngredientRepo(db *sql.DB) *PostgresCollectionRepo {
	return &PostgresCollectionRepo{db: db, spec: ingredientSpec}
}

// Kind はこのリポジトリが扱うコレクションの種類を返す。
func (r *PostgresCollectionRepo) Kind() model.ItemKind {
	return r.spec.kind
}

// ListByOwner は所有者のコレクション一覧をname降順で返す。
// assignedOnlyがtrueの場合はレシピに関連付けられたものだけをDISTINCTで返す。
func (r *PostgresCollectionRepo) ListByOwner(ctx context.Context, userID string, assignedOnly bool) ([]*model.OwnedItem, error) {
	query := `SELECT id, user_id, name, created_at FROM ` + r.spec.table + `
		 WHERE user_id = $1 ORDER BY name DESC`
	if assignedOnly {
		query = `SELECT DISTINCT t.id, t.user_id, t.name, t.created_at
		 FROM ` + r.spec.table + ` t
		 INNER JOIN ` + r.spec.joinTable + ` j ON j.` + r.spec.joinColumn + ` = t.id
		 WHERE t.user_id = $1 ORDER BY t.name DESC`
	}

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list %ss: %w", r.spec.kind, err)
	}
	defer rows.Close()

	var items []*model.OwnedItem
	for rows.Next() {
		item := &model.OwnedItem{}
		if err := rows.Scan(&item.ID, &item.UserID, &item.Name, &item.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan %s: %w", r.spec.kind, err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate %ss: %w", r.spec.kind, err)
	}

	return items, nil
}

// FindByID は所有者スコープで指定IDのレコードを取得する。
// 存在しない場合も他ユーザー所有の場合もnilを返す。
func (r *PostgresCollectionRepo) FindByID(ctx context.Context, userID, id string) (*model.OwnedItem, error) {
	item := &model.OwnedItem{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, user_id, name, created_at FROM `+r.spec.table+`
		 WHERE id = $1 AND user_id = $2`,
		id, userID,
	).Scan(&item.ID, &item.UserID, &item.Name, &item.CreatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find %s: %w", r.spec.kind, err)
	}

	return item, nil
}

// GetOrCreate は(owner, name)に一致する既存レコードを返し、なければ作成する。
func (r *PostgresCollectionRepo) GetOrCreate(ctx context.Context, userID, name string) (*model.OwnedItem, error) {
	return getOrCreateItem(ctx, r.db, r.spec, userID, name)
}

// ListByRecipe は指定レシピに関連付けられたレコードをname昇順で返す。
func (r *PostgresCollectionRepo) ListByRecipe(ctx context.Context, recipeID string) ([]*model.OwnedItem, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT t.id, t.user_id, t.name, t.created_at
		 FROM `+r.spec.table+` t
		 INNER JOIN `+r.spec.joinTable+` j ON j.`+r.spec.joinColumn+` = t.id
		 WHERE j.recipe_id = $1 ORDER BY t.name ASC`,
		recipeID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list %ss for recipe: %w", r.spec.kind, err)
	}
	defer rows.Close()

	var items []*model.OwnedItem
	for rows.Next() {
		item := &model.OwnedItem{}
		if err := rows.Scan(&item.ID, &item.UserID, &item.Name, &item.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan %s: %w", r.spec.kind, err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate %ss: %w", r.spec.kind, err)
	}

	return items, nil
}

// UpdateName は所有者スコープで名前を更新する。対象が存在しない場合はnilを返す。
func (r *PostgresCollectionRepo) UpdateName(ctx context.Context, userID, id, name string) (*model.OwnedItem, error) {
	item := &model.OwnedItem{}
	err := r.db.QueryRowContext(ctx,
		`UPDATE `+r.spec.table+` SET name = $3
		 WHERE id = $1 AND user_id = $2
		 RETURNING id, user_id, name, created_at`,
		id, userID, name,
	).Scan(&item.ID, &item.UserID, &item.Name, &item.CreatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		if mapped := mapUniqueViolation(err); mapped != err {
			return nil, mapped
		}
		return nil, fmt.Errorf("failed to update %s: %w", r.spec.kind, err)
	}

	return item, nil
}

// Delete は所有者スコープでレコードを削除する。結合行はCASCADE削除される。
func (r *PostgresCollectionRepo) Delete(ctx context.Context, userID, id string) (bool, error) {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM `+r.spec.table+` WHERE id = $1 AND user_id = $2`,
		id, userID,
	)
	if err != nil {
		return false, fmt.Errorf("failed to delete %s: %w", r.spec.kind, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rowsAffected > 0, nil
}

// compile-time interface check
var _ CollectionRepository = (*PostgresCollectionRepo)(nil)
