package repo

import (
	"database/sql"
	"database/sql/driver"
	"errors"
	"io"
	"strings"
	"testing"
	"time"
)

// stubDriver serves a fixed order rowset and refuses ordered queries,
// the shape of a store missing the composite index.
type stubDriver struct {
	rows [][]driver.Value
}

func (d *stubDriver) Open(string) (driver.Conn, error) { return &stubConn{rows: d.rows}, nil }

type stubConn struct {
	rows [][]driver.Value
}

func (c *stubConn) Prepare(query string) (driver.Stmt, error) {
	if strings.Contains(query, "ORDER BY") {
		return nil, errors.New("no index for ordered query")
	}
	return &stubStmt{rows: c.rows}, nil
}

func (c *stubConn) Close() error              { return nil }
func (c *stubConn) Begin() (driver.Tx, error) { return nil, errors.New("transactions not supported") }

type stubStmt struct {
	rows [][]driver.Value
}

func (s *stubStmt) Close() error  { return nil }
func (s *stubStmt) NumInput() int { return -1 }

func (s *stubStmt) Exec([]driver.Value) (driver.Result, error) {
	return nil, errors.New("writes not supported")
}

func (s *stubStmt) Query([]driver.Value) (driver.Rows, error) {
	return &stubRows{rows: s.rows}, nil
}

type stubRows struct {
	rows [][]driver.Value
	i    int
}

func (r *stubRows) Columns() []string { return strings.Split(orderColumns, ",") }
func (r *stubRows) Close() error      { return nil }

func (r *stubRows) Next(dest []driver.Value) error {
	if r.i >= len(r.rows) {
		return io.EOF
	}
	copy(dest, r.rows[r.i])
	r.i++
	return nil
}

func orderRow(id, messID string, created time.Time) []driver.Value {
	return []driver.Value{
		id, messID, "Annapurna", "student-1", "Ravi", "", "",
		"[]", float64(100), "walkin", nil, "cash",
		"pending", "pending", "", "",
		nil, nil, nil, nil,
		nil, nil, nil, created, created,
	}
}

func TestPostgresByMessFallsBackToScan(t *testing.T) {
	base := time.Now().UTC().Truncate(time.Second)
	d := &stubDriver{rows: [][]driver.Value{
		orderRow("o1", "mess-a", base),
		orderRow("o2", "mess-b", base.Add(3*time.Second)),
		orderRow("o3", "mess-a", base.Add(2*time.Second)),
		orderRow("o4", "mess-a", base.Add(time.Second)),
	}}
	sql.Register("orders-scan-stub", d)
	db, err := sql.Open("orders-scan-stub", "")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	r := &PostgresRepo{db: db}

	out, err := r.ByMess("mess-a")
	if err != nil {
		t.Fatalf("ByMess should fall back, got %v", err)
	}
	if len(out) != 3 {
		t.Fatalf("fallback did not filter: got %d orders", len(out))
	}
	want := []string{"o3", "o4", "o1"}
	for i, o := range out {
		if o.ID != want[i] {
			t.Fatalf("fallback not newest-first: got %s at %d, want %s", o.ID, i, want[i])
		}
		if o.MessID != "mess-a" {
			t.Fatalf("foreign order leaked: %s", o.ID)
		}
	}

	byStudent, err := r.ByStudent("student-1")
	if err != nil {
		t.Fatalf("ByStudent should fall back, got %v", err)
	}
	if len(byStudent) != 4 || byStudent[0].ID != "o2" {
		t.Fatalf("student fallback wrong: %+v", byStudent)
	}
}
