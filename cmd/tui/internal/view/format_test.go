package view

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestFormatAmount(t *testing.T) {
	assert.Equal(t, "1200.50", FormatAmount(decimal.RequireFromString("1200.5")))
	assert.Equal(t, "-45.00", FormatAmount(decimal.NewFromInt(-45)))
}

func TestFormatDate(t *testing.T) {
	d := time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC)

	assert.Equal(t, "2024-01-05", FormatDate(&d))
	assert.Equal(t, "-", FormatDate(nil))
}
