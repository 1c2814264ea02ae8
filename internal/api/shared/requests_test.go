package shared

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/phrazzld/recall-api/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type submitBody struct {
	SittingID string `json:"sitting_id" validate:"required,uuid"`
	Answer    string `json:"answer"     validate:"required"`
}

func TestDecodeJSON(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		body        string
		wantErr     bool
		errContains string
	}{
		{name: "valid", body: `{"sitting_id":"x","answer":"mitochondria"}`},
		{name: "trailing comma", body: `{"answer":"a",}`, wantErr: true, errContains: "invalid character"},
		{name: "empty body", body: "", wantErr: true, errContains: "EOF"},
		{name: "unknown field", body: `{"answer":"a","score":3}`, wantErr: true, errContains: "unknown field"},
		{name: "two objects", body: `{"answer":"a"} {"answer":"b"}`, wantErr: true, errContains: "single JSON object"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			req := httptest.NewRequest(http.MethodPost, "/api/submit", strings.NewReader(tc.body))

			var got submitBody
			err := DecodeJSON(req, &got)

			if tc.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tc.errContains)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "mitochondria", got.Answer)
		})
	}
}

type errorReader struct{}

func (errorReader) Read([]byte) (int, error) {
	return 0, io.ErrUnexpectedEOF
}

func TestDecodeJSONWithReadError(t *testing.T) {
	t.Parallel()

	req := httptest.NewRequest(http.MethodPost, "/api/submit", errorReader{})
	var target submitBody
	err := DecodeJSON(req, &target)
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
}

type selfValidating struct {
	Title string
}

func (s *selfValidating) Validate() error {
	if s.Title == "" {
		return domain.NewValidationError("title", "cannot be empty", domain.ErrValidation)
	}
	return nil
}

func TestValidateRequest(t *testing.T) {
	t.Parallel()

	t.Run("struct tags report json names", func(t *testing.T) {
		t.Parallel()
		err := ValidateRequest(&submitBody{SittingID: uuid.NewString()})

		var fieldErrs validator.ValidationErrors
		require.True(t, errors.As(err, &fieldErrs))
		require.Len(t, fieldErrs, 1)
		assert.Equal(t, "answer", fieldErrs[0].Field())
		assert.Equal(t, "required", fieldErrs[0].Tag())
	})

	t.Run("uuid tag", func(t *testing.T) {
		t.Parallel()
		err := ValidateRequest(&submitBody{SittingID: "not-a-uuid", Answer: "a"})
		assert.Error(t, err)
	})

	t.Run("valid struct", func(t *testing.T) {
		t.Parallel()
		assert.NoError(t, ValidateRequest(&submitBody{SittingID: uuid.NewString(), Answer: "a"}))
	})

	t.Run("Validate method wins", func(t *testing.T) {
		t.Parallel()
		err := ValidateRequest(&selfValidating{})
		assert.ErrorIs(t, err, domain.ErrValidation)
		assert.NoError(t, ValidateRequest(&selfValidating{Title: "Cells"}))
	})
}

func TestQueryUUID(t *testing.T) {
	t.Parallel()

	id := uuid.New()
	tests := []struct {
		name    string
		query   string
		want    *uuid.UUID
		wantErr error
	}{
		{name: "absent", query: ""},
		{name: "present", query: "?pool_id=" + id.String(), want: &id},
		{name: "malformed", query: "?pool_id=abc", wantErr: domain.ErrInvalidID},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			req := httptest.NewRequest(http.MethodGet, "/api/questions"+tc.query, nil)
			got, err := QueryUUID(req, "pool_id")
			if tc.wantErr != nil {
				assert.ErrorIs(t, err, tc.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestQueryBool(t *testing.T) {
	t.Parallel()

	tests := []struct {
		query   string
		want    bool
		wantErr bool
	}{
		{query: "", want: false},
		{query: "?due_only=true", want: true},
		{query: "?due_only=1", want: true},
		{query: "?due_only=false", want: false},
		{query: "?due_only=maybe", wantErr: true},
	}

	for _, tc := range tests {
		t.Run(tc.query, func(t *testing.T) {
			t.Parallel()
			req := httptest.NewRequest(http.MethodGet, "/api/questions"+tc.query, nil)
			got, err := QueryBool(req, "due_only")
			if tc.wantErr {
				assert.ErrorIs(t, err, domain.ErrInvalidFormat)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}
