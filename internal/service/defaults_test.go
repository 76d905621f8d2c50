package service_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/boddenberg/finance-entry-bfa-go/internal/domain"
	"github.com/boddenberg/finance-entry-bfa-go/internal/service"
)

func TestResolveDefaults_PicksFirstOfEach(t *testing.T) {
	d := service.ResolveDefaults(domain.Draft{Type: domain.TransactionTypeIncome}, testLookups())

	require.NotNil(t, d.CategoryID)
	assert.Equal(t, int64(1), *d.CategoryID)
	require.NotNil(t, d.WalletID)
	assert.Equal(t, int64(10), *d.WalletID)
}

func TestResolveDefaults_KeepsValidSelections(t *testing.T) {
	d := service.ResolveDefaults(domain.Draft{
		Type:       domain.TransactionTypeExpense,
		CategoryID: ptr(4),
		WalletID:   ptr(11),
	}, testLookups())

	assert.Equal(t, int64(4), *d.CategoryID)
	assert.Equal(t, int64(11), *d.WalletID)
}

func TestResolveDefaults_ReplacesCategoryOfOtherType(t *testing.T) {
	d := service.ResolveDefaults(domain.Draft{
		Type:       domain.TransactionTypeExpense,
		CategoryID: ptr(1),
	}, testLookups())

	assert.Equal(t, int64(3), *d.CategoryID)
}

func TestResolveDefaults_EmptyLookups(t *testing.T) {
	in := domain.Draft{Type: domain.TransactionTypeExpense, CategoryID: ptr(3)}
	d := service.ResolveDefaults(in, domain.Lookups{})

	assert.Nil(t, d.WalletID)
	require.NotNil(t, d.CategoryID)
	assert.Equal(t, int64(3), *d.CategoryID, "draft untouched when nothing matches")
}
