package db

import "testing"

func TestRebind(t *testing.T) {
	pg := &DB{driver: DriverPostgres}
	lite := &DB{driver: DriverSQLite}

	q := `UPDATE allowlist SET active = ?, updated = ? WHERE email = ?`
	if got, want := pg.Rebind(q), `UPDATE allowlist SET active = $1, updated = $2 WHERE email = $3`; got != want {
		t.Fatalf("postgres rebind:\n got %s\nwant %s", got, want)
	}
	if got := lite.Rebind(q); got != q {
		t.Fatalf("sqlite rebind should be identity, got %s", got)
	}
	if got := pg.Rebind(`SELECT 1`); got != `SELECT 1` {
		t.Fatalf("query without placeholders changed: %s", got)
	}
}
