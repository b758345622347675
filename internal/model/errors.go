// Package model はドメインモデルを定義する。
package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, validation, recipe, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeValidation         = "VALIDATION_ERROR"
	ErrCodeEmailTaken         = "EMAIL_TAKEN"
	ErrCodePhoneTaken         = "PHONE_TAKEN"
	ErrCodeAuthFailed         = "AUTH_FAILED"
	ErrCodeUnauthorized       = "UNAUTHORIZED"
	ErrCodeRecipeNotFound     = "RECIPE_NOT_FOUND"
	ErrCodeTagNotFound        = "TAG_NOT_FOUND"
	ErrCodeIngredientNotFound = "INGREDIENT_NOT_FOUND"
	ErrCodeUserNotFound       = "USER_NOT_FOUND"
	ErrCodeInvalidImage       = "INVALID_IMAGE"
	ErrCodeImageNotFound      = "IMAGE_NOT_FOUND"
	ErrCodeInvalidLink        = "INVALID_LINK"
)

// NewValidationError は入力検証エラーを生成する。
// fieldには不正なフィールド名、reasonには具体的な理由を指定する。
func NewValidationError(field, reason string) *APIError {
	return &APIError{
		Code:     ErrCodeValidation,
		Message:  fmt.Sprintf("入力値が不正です（%s）: %s", field, reason),
		Category: "validation",
		Action:   "入力内容を確認して再度お試しください。",
	}
}

// NewEmailTakenError はメールアドレス重複エラーを生成する。
func NewEmailTakenError() *APIError {
	return &APIError{
		Code:     ErrCodeEmailTaken,
		Message:  "このメールアドレスは既に登録されています。",
		Category: "validation",
		Action:   "別のメールアドレスを使用するか、ログインしてください。",
	}
}

// NewPhoneTakenError は電話番号重複エラーを生成する。
func NewPhoneTakenError() *APIError {
	return &APIError{
		Code:     ErrCodePhoneTaken,
		Message:  "この電話番号は既に登録されています。",
		Category: "validation",
		Action:   "別の電話番号を使用してください。",
	}
}

// NewAuthFailedError は認証失敗エラーを生成する。
// アカウント列挙を防ぐため、ユーザー不在とパスワード不一致で同一のエラーを返す。
func NewAuthFailedError() *APIError {
	return &APIError{
		Code:     ErrCodeAuthFailed,
		Message:  "メールアドレスまたはパスワードが正しくありません。",
		Category: "auth",
		Action:   "認証情報を確認して再度お試しください。",
	}
}

// NewUnauthorizedError は未認証エラーを生成する。
func NewUnauthorizedError() *APIError {
	return &APIError{
		Code:     ErrCodeUnauthorized,
		Message:  "認証が必要です。",
		Category: "auth",
		Action:   "トークンを取得してからアクセスしてください。",
	}
}

// NewRecipeNotFoundError はレシピ未検出エラーを生成する。
// 他ユーザー所有のレシピへのアクセスも存在しない場合と同一のエラーになる。
func NewRecipeNotFoundError(recipeID string) *APIError {
	return &APIError{
		Code:     ErrCodeRecipeNotFound,
		Message:  fmt.Sprintf("指定されたレシピが見つかりません: %s", recipeID),
		Category: "recipe",
		Action:   "レシピIDを確認してください。",
	}
}

// NewTagNotFoundError はタグ未検出エラーを生成する。
func NewTagNotFoundError(tagID string) *APIError {
	return &APIError{
		Code:     ErrCodeTagNotFound,
		Message:  fmt.Sprintf("指定されたタグが見つかりません: %s", tagID),
		Category: "recipe",
		Action:   "タグIDを確認してください。",
	}
}

// NewIngredientNotFoundError は材料未検出エラーを生成する。
func NewIngredientNotFoundError(ingredientID string) *APIError {
	return &APIError{
		Code:     ErrCodeIngredientNotFound,
		Message:  fmt.Sprintf("指定された材料が見つかりません: %s", ingredientID),
		Category: "recipe",
		Action:   "材料IDを確認してください。",
	}
}

// NewUserNotFoundError はユーザーが見つからない場合のエラーを生成する。
func NewUserNotFoundError() *APIError {
	return &APIError{
		Code:     ErrCodeUserNotFound,
		Message:  "ユーザーが見つかりません。",
		Category: "auth",
		Action:   "トークンを再取得してください。",
	}
}

// NewInvalidImageError は画像データ不正エラーを生成する。
func NewInvalidImageError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidImage,
		Message:  fmt.Sprintf("画像データが不正です: %s", reason),
		Category: "validation",
		Action:   "JPEG/PNG/GIF/WebP形式の画像をアップロードしてください。",
	}
}

// NewImageNotFoundError はレシピに画像が未添付の場合のエラーを生成する。
func NewImageNotFoundError(recipeID string) *APIError {
	return &APIError{
		Code:     ErrCodeImageNotFound,
		Message:  fmt.Sprintf("レシピに画像が添付されていません: %s", recipeID),
		Category: "recipe",
		Action:   "先に画像をアップロードしてください。",
	}
}

// NewInvalidLinkError はレシピの参照リンクが不正な場合のエラーを生成する。
func NewInvalidLinkError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidLink,
		Message:  fmt.Sprintf("無効なリンクです: %s", reason),
		Category: "validation",
		Action:   "http:// または https:// で始まる公開URLを指定してください。",
	}
}
