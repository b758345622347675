package repository

import (
	"errors"
	"testing"

	"github.com/lib/pq"
)

func TestMapUniqueViolation(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{
			name: "email constraint",
			err:  &pq.Error{Code: "23505", Constraint: "users_email_key"},
			want: ErrDuplicateEmail,
		},
		{
			name: "phone constraint",
			err:  &pq.Error{Code: "23505", Constraint: "users_phone_number_key"},
			want: ErrDuplicatePhone,
		},
		{
			name: "tag name constraint",
			err:  &pq.Error{Code: "23505", Constraint: "tags_user_id_name_key"},
			want: ErrDuplicateName,
		},
		{
			name: "ingredient name constraint",
			err:  &pq.Error{Code: "23505", Constraint: "ingredients_user_id_name_key"},
			want: ErrDuplicateName,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := mapUniqueViolation(tt.err); !errors.Is(got, tt.want) {
				t.Errorf("mapUniqueViolation = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestMapUniqueViolation_OtherErrorsPassThrough(t *testing.T) {
	// unique_violation以外のpqエラーは変換しない
	pqErr := &pq.Error{Code: "23503", Constraint: "recipe_tags_recipe_id_fkey"}
	if got := mapUniqueViolation(pqErr); got != error(pqErr) {
		t.Errorf("mapUniqueViolation = %v, want original error", got)
	}

	// pq以外のエラーも変換しない
	plain := errors.New("connection reset")
	if got := mapUniqueViolation(plain); got != plain {
		t.Errorf("mapUniqueViolation = %v, want original error", got)
	}
}

func TestMapUniqueViolation_UnknownConstraintPassesThrough(t *testing.T) {
	pqErr := &pq.Error{Code: "23505", Constraint: "some_other_key"}
	if got := mapUniqueViolation(pqErr); got != error(pqErr) {
		t.Errorf("mapUniqueViolation = %v, want original error", got)
	}
}
