/*
Package sqlite provides a SQLite-backed ContractStore.

PURPOSE:
  Persists the contract aggregate - the contract row, its ordered periods
  and contributions, the support advance with its repayment history, and
  the refund requests. In production, the same patterns apply to
  PostgreSQL - only minor SQL dialect differences.

AGGREGATE WRITES:
  Save replaces the whole aggregate inside one database transaction: the
  contract row is upserted and child rows are rewritten. The settlement
  layer mutates a loaded copy in memory; the transactional rewrite is
  what makes the triggering input and the resulting state land atomically.

KEY TABLES:
  contracts:           One row per contract with running totals
  periods:             One row per due slot, keyed (contract_id, idx)
  contributions:       Ordered payment events per period
  support_advances:    Zero-or-one advance per contract
  advance_repayments:  Ordered repayment history
  refund_requests:     Refund workflow records

CONCURRENCY:
  Uses sync.RWMutex for thread-safety, which also gives the settlement
  layer its per-contract mutual-exclusion boundary in a single-process
  deployment. With PostgreSQL, row locking takes over.

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging) for better concurrency:
  - Multiple readers don't block
  - Single writer at a time
  - Better crash recovery

USAGE:
  store, err := sqlite.New("./data/caisse.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

MIGRATION:
  Schema is auto-migrated on New(). For production, use a proper
  migration tool (golang-migrate, goose) with versioned migrations.

SEE ALSO:
  - engine/store.go: Interface definition
  - engine/store/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/warp/caisse-engine/engine"
)

// Store implements engine.ContractStore using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS contracts (
		id TEXT PRIMARY KEY,
		owner_id TEXT NOT NULL,
		is_group BOOLEAN NOT NULL DEFAULT FALSE,
		cadence TEXT NOT NULL,
		caisse_type TEXT NOT NULL,
		contract_type TEXT NOT NULL,
		target TEXT,
		planned_periods INTEGER NOT NULL,
		start_date TEXT NOT NULL,
		status TEXT NOT NULL,
		total_nominal TEXT NOT NULL,
		total_bonus TEXT NOT NULL,
		total_penalties TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_contracts_owner ON contracts(owner_id);
	CREATE INDEX IF NOT EXISTS idx_contracts_status ON contracts(status);

	CREATE TABLE IF NOT EXISTS periods (
		contract_id TEXT NOT NULL,
		idx INTEGER NOT NULL,
		due_date TEXT NOT NULL,
		target TEXT,
		accumulated TEXT NOT NULL,
		status TEXT NOT NULL,
		penalty TEXT NOT NULL,
		penalty_days INTEGER NOT NULL DEFAULT 0,
		PRIMARY KEY (contract_id, idx)
	);

	CREATE TABLE IF NOT EXISTS contributions (
		id TEXT PRIMARY KEY,
		contract_id TEXT NOT NULL,
		period_idx INTEGER NOT NULL,
		seq INTEGER NOT NULL,
		amount TEXT NOT NULL,
		paid_at TEXT NOT NULL,
		mode TEXT NOT NULL,
		penalty TEXT NOT NULL,
		days_late INTEGER NOT NULL DEFAULT 0,
		payer_id TEXT,
		proof TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_contributions_period
		ON contributions(contract_id, period_idx, seq);
	CREATE INDEX IF NOT EXISTS idx_contributions_paid_at
		ON contributions(contract_id, paid_at);

	CREATE TABLE IF NOT EXISTS support_advances (
		contract_id TEXT PRIMARY KEY,
		id TEXT NOT NULL,
		amount TEXT NOT NULL,
		repaid TEXT NOT NULL,
		status TEXT NOT NULL,
		granted_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS advance_repayments (
		contract_id TEXT NOT NULL,
		seq INTEGER NOT NULL,
		at TEXT NOT NULL,
		amount TEXT NOT NULL,
		period_idx INTEGER NOT NULL,
		PRIMARY KEY (contract_id, seq)
	);

	CREATE TABLE IF NOT EXISTS refund_requests (
		id TEXT PRIMARY KEY,
		contract_id TEXT NOT NULL,
		seq INTEGER NOT NULL,
		type TEXT NOT NULL,
		status TEXT NOT NULL,
		reason TEXT NOT NULL,
		amount_nominal TEXT NOT NULL,
		amount_bonus TEXT NOT NULL,
		document TEXT,
		withdrawal_date TEXT,
		withdrawal_time TEXT,
		withdrawal_proof TEXT,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_refunds_contract
		ON refund_requests(contract_id, seq);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// SAVE - upsert contract row, rewrite child rows, one transaction
// =============================================================================

func (s *Store) Save(ctx context.Context, c *engine.Contract) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO contracts
		(id, owner_id, is_group, cadence, caisse_type, contract_type, target,
		 planned_periods, start_date, status, total_nominal, total_bonus,
		 total_penalties, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			owner_id = excluded.owner_id,
			is_group = excluded.is_group,
			cadence = excluded.cadence,
			caisse_type = excluded.caisse_type,
			contract_type = excluded.contract_type,
			target = excluded.target,
			planned_periods = excluded.planned_periods,
			start_date = excluded.start_date,
			status = excluded.status,
			total_nominal = excluded.total_nominal,
			total_bonus = excluded.total_bonus,
			total_penalties = excluded.total_penalties,
			updated_at = excluded.updated_at
	`,
		c.ID, c.OwnerID, c.Group, c.Cadence, c.CaisseType, c.ContractType,
		nullAmount(c.Target),
		c.PlannedPeriods,
		c.StartDate.Time.Format(time.RFC3339),
		c.Status,
		c.TotalNominal.Value.String(),
		c.TotalBonus.Value.String(),
		c.TotalPenalties.Value.String(),
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to save contract: %w", err)
	}

	// Child rows are rewritten wholesale; the in-memory aggregate is the
	// source of truth.
	for _, table := range []string{"periods", "contributions", "support_advances", "advance_repayments", "refund_requests"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table+" WHERE contract_id = ?", c.ID); err != nil {
			return fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}

	for _, p := range c.Periods {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO periods (contract_id, idx, due_date, target, accumulated, status, penalty, penalty_days)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		`,
			c.ID, p.Index,
			p.DueDate.Time.Format(time.RFC3339),
			nullAmount(p.Target),
			p.Accumulated.Value.String(),
			p.Status,
			p.Penalty.Value.String(),
			p.PenaltyDays,
		)
		if err != nil {
			return fmt.Errorf("failed to save period %d: %w", p.Index, err)
		}

		for seq, cb := range p.Contributions {
			_, err = tx.ExecContext(ctx, `
				INSERT INTO contributions (id, contract_id, period_idx, seq, amount, paid_at, mode, penalty, days_late, payer_id, proof)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			`,
				cb.ID, c.ID, p.Index, seq,
				cb.Amount.Value.String(),
				cb.PaidAt.Time.Format(time.RFC3339),
				cb.Mode,
				cb.Penalty.Value.String(),
				cb.DaysLate,
				nullString(string(cb.PayerID)),
				nullString(string(cb.Proof)),
			)
			if err != nil {
				return fmt.Errorf("failed to save contribution: %w", err)
			}
		}
	}

	if adv := c.Advance; adv != nil {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO support_advances (contract_id, id, amount, repaid, status, granted_at)
			VALUES (?, ?, ?, ?, ?, ?)
		`,
			c.ID, adv.ID,
			adv.Amount.Value.String(),
			adv.Repaid.Value.String(),
			adv.Status,
			adv.GrantedAt.Time.Format(time.RFC3339),
		)
		if err != nil {
			return fmt.Errorf("failed to save advance: %w", err)
		}
		for seq, rp := range adv.Repayments {
			_, err = tx.ExecContext(ctx, `
				INSERT INTO advance_repayments (contract_id, seq, at, amount, period_idx)
				VALUES (?, ?, ?, ?, ?)
			`,
				c.ID, seq,
				rp.At.Time.Format(time.RFC3339),
				rp.Amount.Value.String(),
				rp.PeriodIndex,
			)
			if err != nil {
				return fmt.Errorf("failed to save repayment: %w", err)
			}
		}
	}

	for seq, r := range c.Refunds {
		var withdrawalDate sql.NullString
		if !r.WithdrawalDate.IsZero() {
			withdrawalDate = sql.NullString{String: r.WithdrawalDate.Time.Format(time.RFC3339), Valid: true}
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO refund_requests
			(id, contract_id, seq, type, status, reason, amount_nominal, amount_bonus,
			 document, withdrawal_date, withdrawal_time, withdrawal_proof, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`,
			r.ID, c.ID, seq, r.Type, r.Status, r.Reason,
			r.AmountNominal.Value.String(),
			r.AmountBonus.Value.String(),
			nullString(string(r.Document)),
			withdrawalDate,
			nullString(r.WithdrawalTime),
			nullString(string(r.WithdrawalProof)),
			r.CreatedAt.Time.Format(time.RFC3339),
		)
		if err != nil {
			return fmt.Errorf("failed to save refund request: %w", err)
		}
	}

	return tx.Commit()
}

// =============================================================================
// LOAD / LIST - reassemble the aggregate from its tables
// =============================================================================

func (s *Store) Load(ctx context.Context, id engine.ContractID) (*engine.Contract, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loadLocked(ctx, id)
}

func (s *Store) List(ctx context.Context) ([]*engine.Contract, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, "SELECT id FROM contracts ORDER BY start_date ASC, id ASC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []engine.ContractID
	for rows.Next() {
		var id engine.ContractID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	contracts := make([]*engine.Contract, 0, len(ids))
	for _, id := range ids {
		c, err := s.loadLocked(ctx, id)
		if err != nil {
			return nil, err
		}
		contracts = append(contracts, c)
	}
	return contracts, nil
}

func (s *Store) loadLocked(ctx context.Context, id engine.ContractID) (*engine.Contract, error) {
	var (
		c         engine.Contract
		target    sql.NullString
		startDate string
		nominal   string
		bonus     string
		penalties string
		updatedAt string
	)

	err := s.db.QueryRowContext(ctx, `
		SELECT id, owner_id, is_group, cadence, caisse_type, contract_type, target,
		       planned_periods, start_date, status, total_nominal, total_bonus,
		       total_penalties, updated_at
		FROM contracts WHERE id = ?
	`, id).Scan(
		&c.ID, &c.OwnerID, &c.Group, &c.Cadence, &c.CaisseType, &c.ContractType,
		&target, &c.PlannedPeriods, &startDate, &c.Status,
		&nominal, &bonus, &penalties, &updatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, engine.ErrContractNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load contract: %w", err)
	}

	c.StartDate = parseTime(startDate)
	c.Target = amountPtr(target)
	c.TotalNominal = parseAmount(nominal)
	c.TotalBonus = parseAmount(bonus)
	c.TotalPenalties = parseAmount(penalties)

	if err := s.loadPeriods(ctx, &c); err != nil {
		return nil, err
	}
	if err := s.loadAdvance(ctx, &c); err != nil {
		return nil, err
	}
	if err := s.loadRefunds(ctx, &c); err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *Store) loadPeriods(ctx context.Context, c *engine.Contract) error {
	rows, err := s.db.QueryContext(ctx, `
		SELECT idx, due_date, target, accumulated, status, penalty, penalty_days
		FROM periods WHERE contract_id = ? ORDER BY idx ASC
	`, c.ID)
	if err != nil {
		return err
	}
	defer rows.Close()

	byIndex := make(map[int]*engine.Period)
	for rows.Next() {
		var (
			p           engine.Period
			dueDate     string
			target      sql.NullString
			accumulated string
			penalty     string
		)
		if err := rows.Scan(&p.Index, &dueDate, &target, &accumulated, &p.Status, &penalty, &p.PenaltyDays); err != nil {
			return err
		}
		p.DueDate = parseTime(dueDate)
		p.Target = amountPtr(target)
		p.Accumulated = parseAmount(accumulated)
		p.Penalty = parseAmount(penalty)
		byIndex[p.Index] = &p
		c.Periods = append(c.Periods, &p)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	crows, err := s.db.QueryContext(ctx, `
		SELECT id, period_idx, amount, paid_at, mode, penalty, days_late, payer_id, proof
		FROM contributions WHERE contract_id = ? ORDER BY period_idx ASC, seq ASC
	`, c.ID)
	if err != nil {
		return err
	}
	defer crows.Close()

	for crows.Next() {
		var (
			cb        engine.Contribution
			periodIdx int
			amount    string
			paidAt    string
			penalty   string
			payerID   sql.NullString
			proof     sql.NullString
		)
		if err := crows.Scan(&cb.ID, &periodIdx, &amount, &paidAt, &cb.Mode, &penalty, &cb.DaysLate, &payerID, &proof); err != nil {
			return err
		}
		cb.Amount = parseAmount(amount)
		cb.PaidAt = parseTime(paidAt)
		cb.Penalty = parseAmount(penalty)
		cb.PayerID = engine.MemberID(payerID.String)
		cb.Proof = engine.DocumentRef(proof.String)

		if p, ok := byIndex[periodIdx]; ok {
			p.Contributions = append(p.Contributions, cb)
		}
	}
	return crows.Err()
}

func (s *Store) loadAdvance(ctx context.Context, c *engine.Contract) error {
	var (
		adv       engine.SupportAdvance
		amount    string
		repaid    string
		grantedAt string
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, amount, repaid, status, granted_at
		FROM support_advances WHERE contract_id = ?
	`, c.ID).Scan(&adv.ID, &amount, &repaid, &adv.Status, &grantedAt)
	if err == sql.ErrNoRows {
		return nil
	}
	if err != nil {
		return err
	}

	adv.Amount = parseAmount(amount)
	adv.Repaid = parseAmount(repaid)
	adv.GrantedAt = parseTime(grantedAt)

	rows, err := s.db.QueryContext(ctx, `
		SELECT at, amount, period_idx
		FROM advance_repayments WHERE contract_id = ? ORDER BY seq ASC
	`, c.ID)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			rp     engine.Repayment
			at     string
			amount string
		)
		if err := rows.Scan(&at, &amount, &rp.PeriodIndex); err != nil {
			return err
		}
		rp.At = parseTime(at)
		rp.Amount = parseAmount(amount)
		adv.Repayments = append(adv.Repayments, rp)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	c.Advance = &adv
	return nil
}

func (s *Store) loadRefunds(ctx context.Context, c *engine.Contract) error {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, type, status, reason, amount_nominal, amount_bonus,
		       document, withdrawal_date, withdrawal_time, withdrawal_proof, created_at
		FROM refund_requests WHERE contract_id = ? ORDER BY seq ASC
	`, c.ID)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			r              engine.RefundRequest
			nominal        string
			bonus          string
			document       sql.NullString
			withdrawalDate sql.NullString
			withdrawalTime sql.NullString
			proof          sql.NullString
			createdAt      string
		)
		if err := rows.Scan(&r.ID, &r.Type, &r.Status, &r.Reason, &nominal, &bonus,
			&document, &withdrawalDate, &withdrawalTime, &proof, &createdAt); err != nil {
			return err
		}
		r.AmountNominal = parseAmount(nominal)
		r.AmountBonus = parseAmount(bonus)
		r.Document = engine.DocumentRef(document.String)
		if withdrawalDate.Valid {
			r.WithdrawalDate = parseTime(withdrawalDate.String)
		}
		r.WithdrawalTime = withdrawalTime.String
		r.WithdrawalProof = engine.DocumentRef(proof.String)
		r.CreatedAt = parseTime(createdAt)

		c.Refunds = append(c.Refunds, &r)
	}
	return rows.Err()
}

// Helper functions

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func nullAmount(a *engine.Amount) sql.NullString {
	if a == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: a.Value.String(), Valid: true}
}

func amountPtr(ns sql.NullString) *engine.Amount {
	if !ns.Valid {
		return nil
	}
	a := parseAmount(ns.String)
	return &a
}

func parseAmount(value string) engine.Amount {
	return engine.Amount{Value: engine.MustParseDecimal(value), Currency: engine.DefaultCurrency}
}

func parseTime(value string) engine.TimePoint {
	t, _ := time.Parse(time.RFC3339, value)
	return engine.At(t)
}
