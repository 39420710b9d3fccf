// =============================================================================
// SDSVG Book - Member Repository
// =============================================================================
//
// This module persists the member book in a single flat table, one row per
// member, each row carrying its own copy of the group name and address.
//
// REPLACE SEMANTICS:
//   Every successful import replaces the whole table inside one
//   transaction: DELETE, then one INSERT per member. A failed insert rolls
//   the transaction back, so readers see either the previous book or the new
//   one, never a mix and never an empty table in between.
//
// DRIVERS:
//   postgres  github.com/lib/pq        dob stored as DATE
//   sqlite    modernc.org/sqlite       dob stored as ISO text
//
// =============================================================================

package repository

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/sdsvg/sdsvg-book/internal/apperr"
	"github.com/sdsvg/sdsvg-book/internal/config"
	"github.com/sdsvg/sdsvg-book/internal/converter"
	"github.com/sdsvg/sdsvg-book/internal/types"
	"go.uber.org/zap"

	_ "github.com/lib/pq"
	"modernc.org/sqlite"
)

// User-facing persistence messages.
const (
	MsgConnectFailed = "Database connection failed"
	MsgSaveFailed    = "Unable to save the uploaded data."
	MsgLoadFailed    = "Unable to load the saved member data."
)

// sqliteLower is registered on every sqlite connection. sqlite's own LOWER
// only folds ASCII, so reloads would not match the import sort otherwise.
const sqliteLower = "go_lower"

func init() {
	sqlx.BindDriver(config.DriverSQLite, sqlx.QUESTION)
	if err := sqlite.RegisterDeterministicScalarFunction(sqliteLower, 1, goLower); err != nil {
		panic(fmt.Sprintf("register %s: %v", sqliteLower, err))
	}
}

// goLower folds text the way the import sort does.
func goLower(_ *sqlite.FunctionContext, args []driver.Value) (driver.Value, error) {
	switch v := args[0].(type) {
	case string:
		return strings.ToLower(v), nil
	case []byte:
		return strings.ToLower(string(v)), nil
	default:
		return v, nil
	}
}

// =============================================================================
// DIALECTS
// =============================================================================

type dialect struct {
	idColumn string
	dobType  string
	dobRead  string
	lower    string
	collate  string
}

var dialects = map[string]dialect{
	config.DriverPostgres: {
		idColumn: "BIGSERIAL PRIMARY KEY",
		dobType:  "DATE",
		dobRead:  "TO_CHAR(dob, 'YYYY-MM-DD')",
		lower:    "LOWER",
		collate:  ` COLLATE "C"`,
	},
	config.DriverSQLite: {
		idColumn: "INTEGER PRIMARY KEY AUTOINCREMENT",
		dobType:  "TEXT",
		dobRead:  "dob",
		lower:    sqliteLower,
	},
}

func (d dialect) createTable() string {
	return fmt.Sprintf(`CREATE TABLE IF NOT EXISTS members (
	id %s,
	group_name TEXT NOT NULL,
	group_address TEXT NOT NULL DEFAULT '',
	last_name TEXT NOT NULL DEFAULT '',
	title TEXT NOT NULL DEFAULT '',
	first_name TEXT NOT NULL DEFAULT '',
	middle_name TEXT NOT NULL DEFAULT '',
	member_name TEXT NOT NULL DEFAULT '',
	gender TEXT NOT NULL DEFAULT '',
	relationship TEXT NOT NULL DEFAULT '',
	dob %s NULL,
	dob_display TEXT NOT NULL DEFAULT '',
	education TEXT NOT NULL DEFAULT '',
	mobile TEXT NOT NULL DEFAULT '',
	email TEXT NOT NULL DEFAULT '',
	address TEXT NOT NULL DEFAULT '',
	order_flag TEXT NULL CHECK (order_flag IN ('P', 'S'))
)`, d.idColumn, d.dobType)
}

func (d dialect) selectAll() string {
	return fmt.Sprintf(`SELECT id, group_name, group_address, last_name, title, first_name,
	middle_name, member_name, gender, relationship, %[1]s AS dob, dob_display,
	education, mobile, email, address, order_flag
FROM members
ORDER BY group_name%[2]s,
	CASE WHEN order_flag = 'P' THEN 0 ELSE 1 END,
	%[3]s(last_name)%[2]s,
	%[3]s(first_name)%[2]s,
	id`, d.dobRead, d.collate, d.lower)
}

const insertMember = `INSERT INTO members (
	group_name, group_address, last_name, title, first_name, middle_name,
	member_name, gender, relationship, dob, dob_display, education, mobile,
	email, address, order_flag
) VALUES (
	:group_name, :group_address, :last_name, :title, :first_name, :middle_name,
	:member_name, :gender, :relationship, :dob, :dob_display, :education, :mobile,
	:email, :address, :order_flag
)`

// =============================================================================
// ROW MAPPING
// =============================================================================

type memberRow struct {
	ID           int64          `db:"id"`
	GroupName    string         `db:"group_name"`
	GroupAddress string         `db:"group_address"`
	LastName     string         `db:"last_name"`
	Title        string         `db:"title"`
	FirstName    string         `db:"first_name"`
	MiddleName   string         `db:"middle_name"`
	MemberName   string         `db:"member_name"`
	Gender       string         `db:"gender"`
	Relationship string         `db:"relationship"`
	DOB          sql.NullString `db:"dob"`
	DOBDisplay   string         `db:"dob_display"`
	Education    string         `db:"education"`
	Mobile       string         `db:"mobile"`
	Email        string         `db:"email"`
	Address      string         `db:"address"`
	OrderFlag    sql.NullString `db:"order_flag"`
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func toRow(g types.Group, m types.MemberRecord) memberRow {
	return memberRow{
		GroupName:    g.Name,
		GroupAddress: g.Address,
		LastName:     m.LastName,
		Title:        m.Title,
		FirstName:    m.FirstName,
		MiddleName:   m.MiddleName,
		MemberName:   m.MemberName,
		Gender:       m.Gender,
		Relationship: m.Relationship,
		DOB:          nullable(m.DOBISO),
		DOBDisplay:   m.DOBDisplay,
		Education:    m.Education,
		Mobile:       m.Mobile,
		Email:        m.Email,
		Address:      m.Address,
		OrderFlag:    nullable(m.OrderFlag),
	}
}

func (r memberRow) record() types.MemberRecord {
	return types.MemberRecord{
		ID:           r.ID,
		LastName:     r.LastName,
		Title:        r.Title,
		FirstName:    r.FirstName,
		MiddleName:   r.MiddleName,
		Gender:       r.Gender,
		Relationship: r.Relationship,
		DOBDisplay:   r.DOBDisplay,
		DOBISO:       r.DOB.String,
		Education:    r.Education,
		Mobile:       r.Mobile,
		Email:        r.Email,
		Address:      r.Address,
		OrderFlag:    r.OrderFlag.String,
		GroupLabel:   r.GroupName,
		GroupAddress: r.GroupAddress,
		MemberName:   r.MemberName,
	}
}

// =============================================================================
// REPOSITORY
// =============================================================================

// MemberRepository stores the member book.
type MemberRepository struct {
	db      *sqlx.DB
	dialect dialect
	logger  *zap.Logger
}

// NewMemberRepository wraps an open connection. The dialect follows
// db.DriverName(); anything that is not sqlite is treated as postgres.
func NewMemberRepository(db *sqlx.DB, logger *zap.Logger) *MemberRepository {
	d, ok := dialects[db.DriverName()]
	if !ok {
		d = dialects[config.DriverPostgres]
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MemberRepository{db: db, dialect: d, logger: logger}
}

// Open connects using the configured driver and creates the schema.
func Open(ctx context.Context, cfg config.DatabaseConfig, logger *zap.Logger) (*MemberRepository, error) {
	db, err := sqlx.ConnectContext(ctx, cfg.Driver, cfg.ConnectionString())
	if err != nil {
		return nil, apperr.Persistence(MsgConnectFailed, err)
	}

	if cfg.Driver == config.DriverSQLite {
		// One connection so ":memory:" databases are shared.
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}

	repo := NewMemberRepository(db, logger)
	if err := repo.EnsureSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return repo, nil
}

// EnsureSchema creates the members table when it does not exist.
func (r *MemberRepository) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, r.dialect.createTable()); err != nil {
		return apperr.Persistence(MsgConnectFailed, fmt.Errorf("create members table: %w", err))
	}
	return nil
}

// ReplaceAll swaps the stored book for groups in one transaction. On any
// failure the previous book is left untouched.
func (r *MemberRepository) ReplaceAll(ctx context.Context, groups []types.Group) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return apperr.Persistence(MsgSaveFailed, fmt.Errorf("begin transaction: %w", err))
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
				r.logger.Error("rollback failed", zap.Error(rbErr))
			}
			err = apperr.Persistence(MsgSaveFailed, err)
		}
	}()

	if _, err = tx.ExecContext(ctx, "DELETE FROM members"); err != nil {
		return fmt.Errorf("clear members: %w", err)
	}

	stmt, err := tx.PrepareNamedContext(ctx, insertMember)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	inserted := 0
	for _, g := range groups {
		for _, m := range g.Rows {
			if _, err = stmt.ExecContext(ctx, toRow(g, m)); err != nil {
				return fmt.Errorf("insert member %q of group %q: %w", m.MemberName, g.Name, err)
			}
			inserted++
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	r.logger.Debug("member book replaced", zap.Int("groups", len(groups)), zap.Int("members", inserted))
	return nil
}

// LoadAll reads the stored book back into groups, ordered by group name and
// then by the same member order the import uses.
func (r *MemberRepository) LoadAll(ctx context.Context) ([]types.Group, error) {
	var rows []memberRow
	if err := r.db.SelectContext(ctx, &rows, r.dialect.selectAll()); err != nil {
		return nil, apperr.Persistence(MsgLoadFailed, fmt.Errorf("select members: %w", err))
	}

	records := make([]types.MemberRecord, len(rows))
	for i, row := range rows {
		records[i] = row.record()
	}
	return converter.BucketOrdered(records), nil
}

// Count returns the number of stored members.
func (r *MemberRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.GetContext(ctx, &n, "SELECT COUNT(*) FROM members"); err != nil {
		return 0, apperr.Persistence(MsgLoadFailed, fmt.Errorf("count members: %w", err))
	}
	return n, nil
}

// Ping checks the connection.
func (r *MemberRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// Close releases the connection pool.
func (r *MemberRepository) Close() error {
	return r.db.Close()
}
