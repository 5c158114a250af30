package service

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/letterbox/letterbox/internal/model"
)

func validationFields(t *testing.T, err error) map[string][]string {
	t.Helper()
	var verr *ValidationError
	require.True(t, errors.As(err, &verr), "expected *ValidationError, got %v", err)
	require.ErrorIs(t, err, ErrValidation)
	return verr.Fields
}

func TestValidateSubscriber_Valid(t *testing.T) {
	t.Parallel()
	v := NewValidator()

	tests := []struct {
		name, email string
	}{
		{"le guin", "le_guin@email.com"},
		{"Ursula K. Le Guin", "ursula.le.guin@example.co.uk"},
		{"a", "a@b.io"},
		{strings.Repeat("a", 256), "reader+news@example.com"},
		{strings.Repeat("é", 256), "zoe@example.org"},
		{"O'Brien-Smith", "OBrien@Example.COM"},
	}

	for _, tt := range tests {
		assert.NoError(t, v.ValidateSubscriber(tt.name, tt.email), "name=%q email=%q", tt.name, tt.email)
	}
}

func TestValidateSubscriber_InvalidName(t *testing.T) {
	t.Parallel()
	v := NewValidator()

	tests := []struct {
		label string
		name  string
	}{
		{"empty", ""},
		{"too long", strings.Repeat("a", 257)},
		{"too long multibyte", strings.Repeat("é", 257)},
	}
	for _, c := range forbiddenNameChars {
		tests = append(tests, struct {
			label string
			name  string
		}{"forbidden " + string(c), "ursula" + string(c) + "leguin"})
	}

	for _, tt := range tests {
		t.Run(tt.label, func(t *testing.T) {
			fields := validationFields(t, v.ValidateSubscriber(tt.name, "ursula@example.com"))
			assert.NotEmpty(t, fields["name"])
			assert.NotContains(t, fields, "email")
		})
	}
}

func TestValidateSubscriber_LengthAndCharsBothReported(t *testing.T) {
	t.Parallel()
	v := NewValidator()

	fields := validationFields(t, v.ValidateSubscriber(strings.Repeat("{", 257), "ursula@example.com"))
	assert.Equal(t, []string{reasonTooLong, reasonForbidden}, fields["name"])
}

func TestValidateSubscriber_InvalidEmail(t *testing.T) {
	t.Parallel()
	v := NewValidator()

	for _, email := range []string{
		"",
		"plainaddress",
		"test@.com",
		"@example.com",
		"ursula@",
		"ursula@localhost",
		"ursula example@example.com",
	} {
		t.Run(email, func(t *testing.T) {
			fields := validationFields(t, v.ValidateSubscriber("ursula", email))
			assert.Equal(t, []string{reasonEmail}, fields["email"])
			assert.NotContains(t, fields, "name")
		})
	}
}

func TestValidateSubscriber_BothFieldsInvalid(t *testing.T) {
	t.Parallel()
	v := NewValidator()

	err := v.ValidateSubscriber("", "not-an-email")
	fields := validationFields(t, err)
	assert.Contains(t, fields, "name")
	assert.Contains(t, fields, "email")
	assert.Contains(t, err.Error(), "email: ")
	assert.Contains(t, err.Error(), "name: ")
}

func TestValidateOperator(t *testing.T) {
	t.Parallel()
	v := NewValidator()

	assert.NoError(t, v.ValidateOperator("admin", "hunter2!"))

	fields := validationFields(t, v.ValidateOperator("", "short"))
	assert.Equal(t, []string{reasonEmpty}, fields["username"])
	assert.Equal(t, []string{reasonPasswordLen}, fields["password"])

	fields = validationFields(t, v.ValidateOperator(strings.Repeat("u", 257), "longenough"))
	assert.Equal(t, []string{reasonTooLong}, fields["username"])
}

func TestValidateNewsletter(t *testing.T) {
	t.Parallel()
	v := NewValidator()

	valid := &model.NewsletterRequest{
		Title:   "T",
		Content: model.NewsletterContent{HTML: "H", Text: "X"},
	}
	assert.NoError(t, v.ValidateNewsletter(valid))

	fields := validationFields(t, v.ValidateNewsletter(&model.NewsletterRequest{
		Content: model.NewsletterContent{Text: "X"},
	}))
	assert.Equal(t, []string{"is required"}, fields["title"])
	assert.Equal(t, []string{"is required"}, fields["content.html"])
	assert.NotContains(t, fields, "content.text")
}
