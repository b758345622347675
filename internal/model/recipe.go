// Package model はドメインモデルを定義する。
package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Recipe はユーザーが所有するレシピを表す。
// 所有者は作成時に固定され、変更されない。
type Recipe struct {
	ID            string
	UserID        string
	Title         string
	Description   string
	TimeInMinutes int
	Price         decimal.Decimal
	Link          string
	ImagePath     string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// ItemKind は所有コレクションの種類（タグまたは材料）を表す。
// タグと材料は形が同一のため、1つの実装を2回インスタンス化して扱う。
type ItemKind string

const (
	// KindTag はレシピ分類用のタグ。
	KindTag ItemKind = "tag"
	// KindIngredient はレシピの材料。
	KindIngredient ItemKind = "ingredient"
)

// OwnedItem はユーザーが所有するタグまたは材料を表す。
// 同一ユーザー内で名前は一意（UNIQUE(user_id, name)）であり、
// (owner, name) が等しい2つのレコードは同一の論理エンティティとみなす。
type OwnedItem struct {
	ID        string
	UserID    string
	Name      string
	CreatedAt time.Time
}

// RecipeFilter はレシピ一覧の絞り込み条件を表す。
// TagIDs・IngredientIDsはそれぞれグループ内OR、グループ間ANDで適用される。
type RecipeFilter struct {
	TagIDs        []string
	IngredientIDs []string
}
