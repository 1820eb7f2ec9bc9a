package validator

import (
	"errors"
	"testing"

	"pgstay/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type payoutInput struct {
	AccountNumber string `validate:"required,numeric,min=6,max=20"`
	IFSC          string `validate:"required,len=11"`
}

func TestValidate(t *testing.T) {
	assert.Nil(t, Validate(payoutInput{AccountNumber: "12345678", IFSC: "HDFC0001234"}))

	errs := Validate(payoutInput{AccountNumber: "12ab", IFSC: ""})
	assert.Equal(t, "numeric", errs["AccountNumber"])
	assert.Equal(t, "required", errs["IFSC"])
}

func TestCheckWrapsValidationKind(t *testing.T) {
	require.NoError(t, Check(payoutInput{AccountNumber: "12345678", IFSC: "HDFC0001234"}))

	err := Check(payoutInput{})
	require.ErrorIs(t, err, domain.ErrValidation)
	var fe *FieldError
	require.True(t, errors.As(err, &fe))
	assert.Len(t, fe.Fields, 2)
	assert.Equal(t, "invalid fields: AccountNumber, IFSC", err.Error())
}
