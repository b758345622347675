// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"
	"errors"

	"github.com/hitoshi/recipebook/internal/model"
)

// 一意制約違反を表すセンチネルエラー。
// PostgreSQLのunique_violation（23505）を制約名で判別してマッピングする。
var (
	// ErrDuplicateEmail はメールアドレスの一意制約違反。
	ErrDuplicateEmail = errors.New("email already registered")
	// ErrDuplicatePhone は電話番号の一意制約違反。
	ErrDuplicatePhone = errors.New("phone number already registered")
	// ErrDuplicateName は(user_id, name)の一意制約違反。
	ErrDuplicateName = errors.New("name already exists for this user")
)

// UserRepository はユーザーデータの永続化インターフェース。
type UserRepository interface {
	// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.User, error)

	// FindByEmail は正規化済みメールアドレスでユーザーを検索する。見つからない場合はnilを返す。
	FindByEmail(ctx context.Context, email string) (*model.User, error)

	// Create はユーザーを作成する。
	// email・phone_numberの一意制約違反はErrDuplicateEmail/ErrDuplicatePhoneを返す。
	Create(ctx context.Context, user *model.User) error

	// Update はユーザーの表示名とパスワードハッシュを更新する。
	Update(ctx context.Context, user *model.User) error
}

// TokenRepository はAPIトークンの永続化インターフェース。
type TokenRepository interface {
	// Create はトークンを作成する。
	Create(ctx context.Context, token *model.Token) error
	// FindByID は指定IDのトークンを取得する。期限切れの場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Token, error)
	// DeleteByID は指定IDのトークンを削除する。
	DeleteByID(ctx context.Context, id string) error
	// DeleteByUserID は指定ユーザーの全トークンを削除する。
	DeleteByUserID(ctx context.Context, userID string) error
}

// CollectionRepository はユーザー所有コレクション（タグ・材料）の永続化インターフェース。
// タグと材料で同一の実装をテーブル名を変えて2回インスタンス化する。
type CollectionRepository interface {
	// Kind はこのリポジトリが扱うコレクションの種類を返す。
	Kind() model.ItemKind

	// ListByOwner は所有者のコレクション一覧をname降順で返す。
	// assignedOnlyがtrueの場合、いずれかのレシピに関連付けられたものだけを
	// 重複なしで返す（複数レシピに付いていても1件）。
	ListByOwner(ctx context.Context, userID string, assignedOnly bool) ([]*model.OwnedItem, error)

	// FindByID は所有者スコープで指定IDのレコードを取得する。
	// 存在しない場合も他ユーザー所有の場合もnilを返す。
	FindByID(ctx context.Context, userID, id string) (*model.OwnedItem, error)

	// GetOrCreate は(owner, name)に一致する既存レコードを返し、なければ作成する。
	// 同時呼び出しに対してもストレージ層の一意制約により1ペアにつき最大1件しか存在しない。
	GetOrCreate(ctx context.Context, userID, name string) (*model.OwnedItem, error)

	// ListByRecipe は指定レシピに関連付けられたレコードをname昇順で返す。
	ListByRecipe(ctx context.Context, recipeID string) ([]*model.OwnedItem, error)

	// UpdateName は所有者スコープで名前を更新する。対象が存在しない場合はnilを返す。
	// 改名先が既存の名前と衝突する場合はErrDuplicateNameを返す。
	UpdateName(ctx context.Context, userID, id, name string) (*model.OwnedItem, error)

	// Delete は所有者スコープでレコードと関連付けを削除する。
	// 削除された場合はtrueを返す。レシピ本体は削除されない（結合行のみCASCADE）。
	Delete(ctx context.Context, userID, id string) (bool, error)
}

// RecipeRepository はレシピデータの永続化インターフェース。
// タグ・材料の名前解決を含む複数ステップの変更は単一トランザクションで実行する。
type RecipeRepository interface {
	// FindByID は所有者スコープで指定IDのレシピを取得する。
	// 存在しない場合も他ユーザー所有の場合もnilを返す。
	FindByID(ctx context.Context, userID, id string) (*model.Recipe, error)

	// ListByOwner は所有者のレシピ一覧を新しい順（created_at降順）で返す。
	// filterのTagIDs・IngredientIDsはグループ内OR、グループ間ANDで適用し、
	// 結果は重複なし（複数条件に一致しても1件）。
	ListByOwner(ctx context.Context, userID string, filter model.RecipeFilter) ([]*model.Recipe, error)

	// CreateWithItems はレシピとタグ・材料の関連付けを同一トランザクションで作成する。
	// 各名前はget-or-createで解決し、いずれかが失敗した場合は全体をロールバックする。
	CreateWithItems(ctx context.Context, recipe *model.Recipe, tagNames, ingredientNames []string) error

	// Update はレシピのスカラー属性と関連付けを同一トランザクションで更新する。
	// tagNames（またはingredientNames）がnilでない場合、空スライスを含めて
	// 関連付け全体を置き換える。nilの場合は関連付けに触れない。
	// 対象が存在しない（または他ユーザー所有の）場合はfalseを返す。
	Update(ctx context.Context, recipe *model.Recipe, tagNames, ingredientNames *[]string) (bool, error)

	// UpdateImagePath は画像参照を更新し、以前の参照を返す。
	// 対象が存在しない場合はfalseを返す。
	UpdateImagePath(ctx context.Context, userID, id, imagePath string) (previous string, found bool, err error)

	// Delete は所有者スコープでレシピを削除する。結合行はCASCADE削除されるが、
	// タグ・材料本体は残る。削除された場合は削除前のimage_pathとtrueを返す。
	Delete(ctx context.Context, userID, id string) (imagePath string, found bool, err error)
}
