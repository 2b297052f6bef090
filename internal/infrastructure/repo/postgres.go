package repo

import (
	"database/sql"
	"encoding/json"
	"sort"
	"time"

	_ "github.com/lib/pq"

	"mess-backend/internal/domain"
)

type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(dsn string) (*PostgresRepo, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	r := &PostgresRepo{db: db}
	if err := r.init(); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *PostgresRepo) init() error {
	_, err := r.db.Exec(`CREATE TABLE IF NOT EXISTS orders (
		id TEXT PRIMARY KEY,
		mess_id TEXT,
		mess_name TEXT,
		student_id TEXT,
		student_name TEXT,
		student_email TEXT,
		student_phone TEXT,
		items TEXT,
		total DOUBLE PRECISION,
		order_type TEXT,
		delivery_address TEXT,
		payment_method TEXT,
		payment_status TEXT,
		status TEXT,
		checkout_key TEXT,
		payment_id TEXT,
		paid_at TIMESTAMPTZ,
		confirmed_at TIMESTAMPTZ,
		preparing_at TIMESTAMPTZ,
		ready_at TIMESTAMPTZ,
		out_for_delivery_at TIMESTAMPTZ,
		delivered_at TIMESTAMPTZ,
		cancelled_at TIMESTAMPTZ,
		created_at TIMESTAMPTZ,
		updated_at TIMESTAMPTZ
	);`)
	if err != nil {
		return err
	}
	_, err = r.db.Exec(`CREATE INDEX IF NOT EXISTS orders_mess_created ON orders (mess_id, created_at DESC);`)
	if err != nil {
		return err
	}
	_, err = r.db.Exec(`CREATE INDEX IF NOT EXISTS orders_student_created ON orders (student_id, created_at DESC);`)
	if err != nil {
		return err
	}
	_, err = r.db.Exec(`CREATE TABLE IF NOT EXISTS users (
		user_id TEXT PRIMARY KEY,
		name TEXT,
		email TEXT UNIQUE,
		phone TEXT,
		user_type TEXT,
		address TEXT,
		password_hash TEXT,
		created_at TIMESTAMPTZ,
		updated_at TIMESTAMPTZ
	);`)
	if err != nil {
		return err
	}
	_, err = r.db.Exec(`CREATE TABLE IF NOT EXISTS messes (
		id TEXT PRIMARY KEY,
		owner_id TEXT,
		name TEXT,
		description TEXT,
		location TEXT,
		menu TEXT,
		created_at TIMESTAMPTZ,
		updated_at TIMESTAMPTZ
	);`)
	return err
}

const orderColumns = `id,mess_id,mess_name,student_id,student_name,student_email,student_phone,
	items,total,order_type,delivery_address,payment_method,payment_status,status,
	checkout_key,payment_id,paid_at,confirmed_at,preparing_at,ready_at,
	out_for_delivery_at,delivered_at,cancelled_at,created_at,updated_at`

func (r *PostgresRepo) Create(o *domain.Order) (string, error) {
	o.ID = newID()
	if err := r.Put(o); err != nil {
		o.ID = ""
		return "", err
	}
	return o.ID, nil
}

func (r *PostgresRepo) Put(o *domain.Order) error {
	items, _ := json.Marshal(o.Items)
	var addr []byte
	if o.DeliveryAddress != nil {
		addr, _ = json.Marshal(o.DeliveryAddress)
	}
	_, err := r.db.Exec(`INSERT INTO orders (`+orderColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$22,$23,$24,$25)
		ON CONFLICT (id) DO UPDATE SET
			payment_status=$13,status=$14,payment_id=$16,paid_at=$17,confirmed_at=$18,
			preparing_at=$19,ready_at=$20,out_for_delivery_at=$21,delivered_at=$22,
			cancelled_at=$23,updated_at=$25`,
		o.ID, o.MessID, o.MessName, o.StudentID, o.StudentName, o.StudentEmail, o.StudentPhone,
		string(items), o.Total, string(o.OrderType), nullString(addr), string(o.PaymentMethod),
		string(o.PaymentStatus), string(o.Status), o.CheckoutKey, o.PaymentID,
		nullTime(o.PaidAt), nullTime(o.ConfirmedAt), nullTime(o.PreparingAt), nullTime(o.ReadyAt),
		nullTime(o.OutForDeliveryAt), nullTime(o.DeliveredAt), nullTime(o.CancelledAt),
		o.CreatedAt, o.UpdatedAt)
	return err
}

func (r *PostgresRepo) Get(id string) (*domain.Order, bool) {
	row := r.db.QueryRow(`SELECT `+orderColumns+` FROM orders WHERE id=$1`, id)
	o, err := scanOrder(row)
	if err != nil {
		return nil, false
	}
	return o, true
}

// ByMess serves the indexed newest-first path; when that query fails it
// falls back to a full scan with client-side filter and sort, keeping
// the same ordering contract.
func (r *PostgresRepo) ByMess(messID string) ([]domain.Order, error) {
	out, err := r.queryOrders(`SELECT `+orderColumns+` FROM orders WHERE mess_id=$1 ORDER BY created_at DESC`, messID)
	if err != nil {
		return r.scanFallback(func(o *domain.Order) bool { return o.MessID == messID })
	}
	return out, nil
}

func (r *PostgresRepo) ByStudent(studentID string) ([]domain.Order, error) {
	out, err := r.queryOrders(`SELECT `+orderColumns+` FROM orders WHERE student_id=$1 ORDER BY created_at DESC`, studentID)
	if err != nil {
		return r.scanFallback(func(o *domain.Order) bool { return o.StudentID == studentID })
	}
	return out, nil
}

func (r *PostgresRepo) ByCheckoutKey(studentID, key string) ([]domain.Order, error) {
	return r.queryOrders(`SELECT `+orderColumns+` FROM orders WHERE student_id=$1 AND checkout_key=$2 ORDER BY created_at DESC`, studentID, key)
}

func (r *PostgresRepo) queryOrders(query string, args ...any) ([]domain.Order, error) {
	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]domain.Order, 0)
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *o)
	}
	return out, rows.Err()
}

func (r *PostgresRepo) scanFallback(keep func(*domain.Order) bool) ([]domain.Order, error) {
	all, err := r.queryOrders(`SELECT ` + orderColumns + ` FROM orders`)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Order, 0)
	for i := range all {
		if keep(&all[i]) {
			out = append(out, all[i])
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrder(row rowScanner) (*domain.Order, error) {
	var o domain.Order
	var items string
	var addr sql.NullString
	var paid, confirmed, preparing, ready, out, delivered, cancelled sql.NullTime
	err := row.Scan(&o.ID, &o.MessID, &o.MessName, &o.StudentID, &o.StudentName, &o.StudentEmail, &o.StudentPhone,
		&items, &o.Total, (*string)(&o.OrderType), &addr, (*string)(&o.PaymentMethod),
		(*string)(&o.PaymentStatus), (*string)(&o.Status), &o.CheckoutKey, &o.PaymentID,
		&paid, &confirmed, &preparing, &ready, &out, &delivered, &cancelled,
		&o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return nil, err
	}
	_ = json.Unmarshal([]byte(items), &o.Items)
	if addr.Valid && addr.String != "" {
		var a domain.Address
		if json.Unmarshal([]byte(addr.String), &a) == nil {
			o.DeliveryAddress = &a
		}
	}
	o.PaidAt = timePtr(paid)
	o.ConfirmedAt = timePtr(confirmed)
	o.PreparingAt = timePtr(preparing)
	o.ReadyAt = timePtr(ready)
	o.OutForDeliveryAt = timePtr(out)
	o.DeliveredAt = timePtr(delivered)
	o.CancelledAt = timePtr(cancelled)
	return &o, nil
}

func (r *PostgresRepo) PutUser(u *domain.User) error {
	var addr []byte
	if u.Address != nil {
		addr, _ = json.Marshal(u.Address)
	}
	_, err := r.db.Exec(`INSERT INTO users (user_id,name,email,phone,user_type,address,password_hash,created_at,updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		ON CONFLICT (user_id) DO UPDATE SET name=$2,email=$3,phone=$4,user_type=$5,address=$6,password_hash=$7,updated_at=$9`,
		u.UserID, u.Name, u.Email, u.Phone, string(u.UserType), nullString(addr), u.PasswordHash, u.CreatedAt, u.UpdatedAt)
	return err
}

func (r *PostgresRepo) GetUser(id string) (*domain.User, bool) {
	return r.userBy(`SELECT user_id,name,email,phone,user_type,address,password_hash,created_at,updated_at FROM users WHERE user_id=$1`, id)
}

func (r *PostgresRepo) GetUserByEmail(email string) (*domain.User, bool) {
	return r.userBy(`SELECT user_id,name,email,phone,user_type,address,password_hash,created_at,updated_at FROM users WHERE email=$1`, email)
}

func (r *PostgresRepo) userBy(query, arg string) (*domain.User, bool) {
	var u domain.User
	var addr sql.NullString
	err := r.db.QueryRow(query, arg).
		Scan(&u.UserID, &u.Name, &u.Email, &u.Phone, (*string)(&u.UserType), &addr, &u.PasswordHash, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, false
	}
	if addr.Valid && addr.String != "" {
		var a domain.Address
		if json.Unmarshal([]byte(addr.String), &a) == nil {
			u.Address = &a
		}
	}
	return &u, true
}

func (r *PostgresRepo) PutMess(m *domain.Mess) error {
	menu, _ := json.Marshal(m.Menu)
	_, err := r.db.Exec(`INSERT INTO messes (id,owner_id,name,description,location,menu,created_at,updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		ON CONFLICT (id) DO UPDATE SET name=$3,description=$4,location=$5,menu=$6,updated_at=$8`,
		m.ID, m.OwnerID, m.Name, m.Description, m.Location, string(menu), m.CreatedAt, m.UpdatedAt)
	return err
}

func (r *PostgresRepo) GetMess(id string) (*domain.Mess, bool) {
	var m domain.Mess
	var menu string
	err := r.db.QueryRow(`SELECT id,owner_id,name,description,location,menu,created_at,updated_at FROM messes WHERE id=$1`, id).
		Scan(&m.ID, &m.OwnerID, &m.Name, &m.Description, &m.Location, &menu, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		return nil, false
	}
	_ = json.Unmarshal([]byte(menu), &m.Menu)
	if m.Menu == nil {
		m.Menu = []domain.MenuItem{}
	}
	return &m, true
}

func (r *PostgresRepo) ListMesses() ([]domain.Mess, error) {
	rows, err := r.db.Query(`SELECT id,owner_id,name,description,location,menu,created_at,updated_at FROM messes ORDER BY name ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]domain.Mess, 0)
	for rows.Next() {
		var m domain.Mess
		var menu string
		if err := rows.Scan(&m.ID, &m.OwnerID, &m.Name, &m.Description, &m.Location, &menu, &m.CreatedAt, &m.UpdatedAt); err != nil {
			return nil, err
		}
		_ = json.Unmarshal([]byte(menu), &m.Menu)
		if m.Menu == nil {
			m.Menu = []domain.MenuItem{}
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func nullString(b []byte) any {
	if len(b) == 0 {
		return nil
	}
	return string(b)
}

func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return *t
}

func timePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}
