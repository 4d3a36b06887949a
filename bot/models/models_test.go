package models

import (
	"errors"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFieldError(t *testing.T) {
	_, parseErr := strconv.Atoi("x")

	err := &FieldError{Field: "month_num", Problem: FieldNotNumber, Value: "x", Err: parseErr}

	assert.Equal(t, `field "month_num": not a number ("x"): `+parseErr.Error(), err.Error())
	assert.True(t, errors.Is(err, strconv.ErrSyntax))
}

func TestFieldErrorMissing(t *testing.T) {
	err := &FieldError{Field: "fullname", Problem: FieldMissing}

	assert.Equal(t, `field "fullname": missing`, err.Error())
	assert.Nil(t, errors.Unwrap(err))
}

func TestTableName(t *testing.T) {
	assert.Equal(t, "birthdays", Birthday{}.TableName())
}
