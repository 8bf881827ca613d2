package dbutil

import (
	"fmt"
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/require"
)

func TestFinalizeRewritesLimitAndPlaceholders(t *testing.T) {
	query, args := Finalize("SELECT id FROM videos WHERE status=? ORDER BY ctime DESC LIMIT ?,?", []interface{}{"completed", 20, 10})
	require.Equal(t, "SELECT id FROM videos WHERE status=$1 ORDER BY ctime DESC LIMIT $2 OFFSET $3", query)
	require.Equal(t, []interface{}{"completed", 10, 20}, args)
}

func TestFinalizeWithoutLimit(t *testing.T) {
	query, args := Finalize("SELECT id FROM videos WHERE id=?", []interface{}{"v1"})
	require.Equal(t, "SELECT id FROM videos WHERE id=$1", query)
	require.Equal(t, []interface{}{"v1"}, args)
}

func TestFinalizeQuotesIdentifiers(t *testing.T) {
	query, _ := Finalize("SELECT `id`,`status` FROM `videos` WHERE (`id`=?)", []interface{}{"v1"})
	require.Equal(t, `SELECT "id","status" FROM "videos" WHERE ("id"=$1)`, query)
}

func TestErrorCodes(t *testing.T) {
	require.True(t, IsConflict(&pq.Error{Code: "23505"}))
	require.True(t, IsForeignKeyViolation(fmt.Errorf("insert: %w", &pq.Error{Code: "23503"})))
	require.False(t, IsConflict(fmt.Errorf("plain")))
}
