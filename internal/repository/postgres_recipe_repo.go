package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/hitoshi/recipebook/internal/model"
)

// PostgresRecipeRepo はPostgreSQLを使用したレシピリポジトリ。
// タグ・材料の名前解決を含む変更は単一トランザクションで実行する。
type PostgresRecipeRepo struct {
	db *sql.DB
}

// NewPostgresRecipeRepo はPostgresRecipeRepoを生成する。
func NewPostgresRecipeRepo(db *sql.DB) *PostgresRecipeRepo {
	return &PostgresRecipeRepo{db: db}
}

const recipeColumns = `id, user_id, title, description, time_in_minutes, price, link, image_path, created_at, updated_at`

// rowScanner はsql.Rowとsql.Rowsの共通スキャンインターフェース。
type rowScanner interface {
	Scan(dest ...any) error
}

// scanRecipe は1行分のレシピレコードをスキャンする。
// priceはNUMERICの文字列表現からdecimalに変換する。
func scanRecipe(row rowScanner) (*model.Recipe, error) {
	recipe := &model.Recipe{}
	var priceStr string

	err := row.Scan(
		&recipe.ID, &recipe.UserID, &recipe.Title, &recipe.Description,
		&recipe.TimeInMinutes, &priceStr, &recipe.Link, &recipe.ImagePath,
		&recipe.CreatedAt, &recipe.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	price, err := decimal.NewFromString(priceStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse price %q: %w", priceStr, err)
	}
	recipe.Price = price

	return recipe, nil
}

// FindByID は所有者スコープで指定IDのレシピを取得する。
// 存在しない場合も他ユーザー所有の場合もnilを返す。
func (r *PostgresRecipeRepo) FindByID(ctx context.Context, userID, id string) (*model.Recipe, error) {
	recipe, err := scanRecipe(r.db.QueryRowContext(ctx,
		`SELECT `+recipeColumns+` FROM recipes WHERE id = $1 AND user_id = $2`,
		id, userID,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find recipe: %w", err)
	}
	return recipe, nil
}

// ListByOwner は所有者のレシピ一覧を新しい順で返す。
// タグ・材料フィルタはグループ内OR、グループ間ANDで適用し、DISTINCTで重複を除く。
// クエリはリクエストごとに1回だけ組み立てて実行する。
func (r *PostgresRecipeRepo) ListByOwner(ctx context.Context, userID string, filter model.RecipeFilter) ([]*model.Recipe, error) {
	query := `SELECT DISTINCT r.id, r.user_id, r.title, r.description, r.time_in_minutes, r.price, r.link, r.image_path, r.created_at, r.updated_at
	 FROM recipes r`
	args := []any{userID}

	if len(filter.TagIDs) > 0 {
		query += ` INNER JOIN recipe_tags rt ON rt.recipe_id = r.id`
	}
	if len(filter.IngredientIDs) > 0 {
		query += ` INNER JOIN recipe_ingredients ri ON ri.recipe_id = r.id`
	}

	query += ` WHERE r.user_id = $1`

	if len(filter.TagIDs) > 0 {
		args = append(args, pq.Array(filter.TagIDs))
		query += fmt.Sprintf(` AND rt.tag_id = ANY($%d::uuid[])`, len(args))
	}
	if len(filter.IngredientIDs) > 0 {
		args = append(args, pq.Array(filter.IngredientIDs))
		query += fmt.Sprintf(` AND ri.ingredient_id = ANY($%d::uuid[])`, len(args))
	}

	query += ` ORDER BY r.created_at DESC, r.id DESC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list recipes: %w", err)
	}
	defer rows.Close()

	var recipes []*model.Recipe
	for rows.Next() {
		recipe, err := scanRecipe(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan recipe: %w", err)
		}
		recipes = append(recipes, recipe)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate recipes: %w", err)
	}

	return recipes, nil
}

// attachItems は名前のリストをget-or-createで解決し、結合行を挿入する。
// レシピと同一トランザクション内で呼ぶこと。
func attachItems(ctx context.Context, tx *sql.Tx, spec collectionSpec, userID, recipeID string, names []string) error {
	for _, name := range names {
		item, err := getOrCreateItem(ctx, tx, spec, userID, name)
		if err != nil {
			return err
		}

		_, err = tx.ExecContext(ctx,
			`INSERT INTO `+spec.joinTable+` (recipe_id, `+spec.joinColumn+`)
			 VALUES ($1, $2)
			 ON CONFLICT DO NOTHING`,
			recipeID, item.ID,
		)
		if err != nil {
			return fmt.Errorf("failed to attach %s %q: %w", spec.kind, name, err)
		}
	}
	return nil
}

// CreateWithItems はレシピとタグ・材料の関連付けを同一トランザクションで作成する。
// 名前解決のいずれかが失敗した場合、レシピ本体も作成されない。
func (r *PostgresRecipeRepo) CreateWithItems(ctx context.Context, recipe *model.Recipe, tagNames, ingredientNames []string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO recipes (id, user_id, title, description, time_in_minutes, price, link, image_path, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		recipe.ID, recipe.UserID, recipe.Title, recipe.Description,
		recipe.TimeInMinutes, recipe.Price.StringFixed(2), recipe.Link, recipe.ImagePath,
		recipe.CreatedAt, recipe.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert recipe: %w", err)
	}

	if err := attachItems(ctx, tx, tagSpec, recipe.UserID, recipe.ID, tagNames); err != nil {
		return err
	}
	if err := attachItems(ctx, tx, ingredientSpec, recipe.UserID, recipe.ID, ingredientNames); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// Update はレシピのスカラー属性と関連付けを同一トランザクションで更新する。
// tagNames（またはingredientNames）がnilでない場合は関連付け全体を置き換える。
// 空スライスの指定は全関連付けの解除を意味する。nilの場合は関連付けに触れない。
func (r *PostgresRecipeRepo) Update(ctx context.Context, recipe *model.Recipe, tagNames, ingredientNames *[]string) (bool, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx,
		`UPDATE recipes
		 SET title = $3, description = $4, time_in_minutes = $5, price = $6, link = $7, updated_at = $8
		 WHERE id = $1 AND user_id = $2`,
		recipe.ID, recipe.UserID,
		recipe.Title, recipe.Description, recipe.TimeInMinutes,
		recipe.Price.StringFixed(2), recipe.Link, recipe.UpdatedAt,
	)
	if err != nil {
		return false, fmt.Errorf("failed to update recipe: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return false, nil
	}

	// 全置換: 既存の関連付けを消してから名前を解決して付け直す
	if tagNames != nil {
		if err := replaceItems(ctx, tx, tagSpec, recipe.UserID, recipe.ID, *tagNames); err != nil {
			return false, err
		}
	}
	if ingredientNames != nil {
		if err := replaceItems(ctx, tx, ingredientSpec, recipe.UserID, recipe.ID, *ingredientNames); err != nil {
			return false, err
		}
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return true, nil
}

// replaceItems は結合行を全削除してから指定された名前を付け直す。
func replaceItems(ctx context.Context, tx *sql.Tx, spec collectionSpec, userID, recipeID string, names []string) error {
	_, err := tx.ExecContext(ctx,
		`DELETE FROM `+spec.joinTable+` WHERE recipe_id = $1`,
		recipeID,
	)
	if err != nil {
		return fmt.Errorf("failed to clear %s associations: %w", spec.kind, err)
	}
	return attachItems(ctx, tx, spec, userID, recipeID, names)
}

// UpdateImagePath は画像参照を更新し、以前の参照を返す。
// 画像の差し替えを単一トランザクションで行い、置き換え前のパスを呼び出し側に渡す。
func (r *PostgresRecipeRepo) UpdateImagePath(ctx context.Context, userID, id, imagePath string) (string, bool, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return "", false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var previous string
	err = tx.QueryRowContext(ctx,
		`SELECT image_path FROM recipes WHERE id = $1 AND user_id = $2 FOR UPDATE`,
		id, userID,
	).Scan(&previous)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to lock recipe for image update: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE recipes SET image_path = $3, updated_at = now() WHERE id = $1 AND user_id = $2`,
		id, userID, imagePath,
	)
	if err != nil {
		return "", false, fmt.Errorf("failed to update image path: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return "", false, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return previous, true, nil
}

// Delete は所有者スコープでレシピを削除する。
// 結合行はCASCADE削除される。タグ・材料本体には影響しない。
// 削除前のimage_pathを返し、呼び出し側が画像リソースを解放する。
func (r *PostgresRecipeRepo) Delete(ctx context.Context, userID, id string) (string, bool, error) {
	var imagePath string
	err := r.db.QueryRowContext(ctx,
		`DELETE FROM recipes WHERE id = $1 AND user_id = $2 RETURNING image_path`,
		id, userID,
	).Scan(&imagePath)

	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to delete recipe: %w", err)
	}

	return imagePath, true, nil
}

// compile-time interface check
var _ RecipeRepository = (*PostgresRecipeRepo)(nil)
