package main

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/backoffice/api"
	"github.com/warp/backoffice/office"
	"github.com/warp/backoffice/store/sqlite"
)

func TestRun(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "office.db")
	t.Setenv("OFFICE_JWT_SECRET", "test-secret")
	t.Setenv("OFFICE_DB_PATH", dbPath)
	ctx := context.Background()

	tokens, err := api.NewTokens("test-secret", time.Hour)
	require.NoError(t, err)

	// GIVEN: an empty database
	// WHEN: an admin is bootstrapped
	var out bytes.Buffer
	require.NoError(t, run(ctx, &out, "admin", "Office Admin", "Admin", ""))

	// THEN: the printed token verifies
	first, err := tokens.Verify(strings.TrimSpace(out.String()))
	require.NoError(t, err)

	// WHEN: the same username is run again with other groups
	out.Reset()
	require.NoError(t, run(ctx, &out, "admin", "", "Admin, Staff, Owner", ""))
	second, err := tokens.Verify(strings.TrimSpace(out.String()))
	require.NoError(t, err)

	// THEN: the account is reused, active, with only the known groups
	assert.Equal(t, first, second)

	store, err := sqlite.New(dbPath)
	require.NoError(t, err)
	defer store.Close()
	s, err := store.GetStaff(ctx, first)
	require.NoError(t, err)
	require.NotNil(t, s)
	assert.True(t, s.Active)
	assert.ElementsMatch(t, []office.Group{office.GroupAdmin, office.GroupStaff}, s.Groups)
	assert.Equal(t, "Office Admin", s.DisplayName)
}

func TestRun_Rejects(t *testing.T) {
	t.Setenv("OFFICE_JWT_SECRET", "test-secret")
	t.Setenv("OFFICE_DB_PATH", filepath.Join(t.TempDir(), "office.db"))
	ctx := context.Background()

	var out bytes.Buffer
	assert.Error(t, run(ctx, &out, " ", "", "Staff", ""))
	assert.Error(t, run(ctx, &out, "kim", "", "Owner", ""))
	assert.Empty(t, out.String())
}

func TestRun_RequiresSecret(t *testing.T) {
	t.Setenv("OFFICE_JWT_SECRET", "")
	t.Setenv("OFFICE_DB_PATH", filepath.Join(t.TempDir(), "office.db"))

	assert.Error(t, run(context.Background(), &bytes.Buffer{}, "kim", "", "Staff", ""))
}
