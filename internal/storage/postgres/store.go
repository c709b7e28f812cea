package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/google/uuid"
	interfaces "github.com/sheikh-saqib/escrow-ledger/internal/interfaces"
	"github.com/sheikh-saqib/escrow-ledger/internal/models"
	"github.com/sheikh-saqib/escrow-ledger/internal/storage"
	"github.com/shopspring/decimal"
)

// PostgresAccountStore keeps accounts and their transactions in PostgreSQL.
// Every mutation runs in one SQL transaction with the touched rows locked
// FOR UPDATE in address order.
type PostgresAccountStore struct {
	db  *sql.DB
	now func() time.Time
}

func NewPostgresAccountStore(db *sql.DB) *PostgresAccountStore {
	return &PostgresAccountStore{
		db:  db,
		now: time.Now,
	}
}

// lockedAccount is the part of an account row the mutating paths need.
type lockedAccount struct {
	lamports uint64
	owner    string
	dataLen  int
}

func (p *PostgresAccountStore) GetAccount(ctx context.Context, addr models.Address) (*models.Account, error) {
	const query = `SELECT lamports, owner, data FROM accounts WHERE address = $1`

	var (
		lamports decimal.Decimal
		owner    string
		data     []byte
	)
	err := p.db.QueryRowContext(ctx, query, addr.String()).Scan(&lamports, &owner, &data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrAccountNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	acc := &models.Account{Address: addr, Data: data}
	if acc.Lamports, err = fromNumeric(lamports); err != nil {
		return nil, err
	}
	if acc.Owner, err = models.ParseAddress(owner); err != nil {
		return nil, err
	}
	return acc, nil
}

func (p *PostgresAccountStore) CreateAccount(ctx context.Context, params interfaces.CreateAccountParams) (*models.Transaction, error) {
	var created *models.Transaction
	err := withTx(ctx, p.db, func(tx *sql.Tx) error {
		if err := p.ensureAccount(ctx, tx, params.Address); err != nil {
			return err
		}
		rows, err := p.lockAccounts(ctx, tx, params.Address, params.Payer)
		if err != nil {
			return err
		}

		target := rows[params.Address]
		if target.owner != systemOwner || target.dataLen > 0 {
			return fmt.Errorf("%w: %s", storage.ErrAccountExists, params.Address)
		}

		var due uint64
		if params.Lamports > target.lamports {
			due = params.Lamports - target.lamports
		}
		if due > 0 {
			payer, ok := rows[params.Payer]
			if !ok || payer.lamports < due {
				return fmt.Errorf("%w: payer %s cannot cover %d", storage.ErrInsufficientBalance, params.Payer, due)
			}
			if err := p.adjust(ctx, tx, params.Payer, `lamports - $2`, due); err != nil {
				return err
			}
		}

		data := params.Data
		if data == nil {
			data = []byte{}
		}
		const query = `UPDATE accounts SET lamports = $2, owner = $3, data = $4 WHERE address = $1`
		if _, err := tx.ExecContext(ctx, query,
			params.Address.String(), toNumeric(target.lamports+due), params.Owner.String(), data); err != nil {
			return fmt.Errorf("db error: %w", err)
		}

		created, err = p.record(ctx, tx, models.KindCreate, params.Payer, params.Address, due)
		return err
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

func (p *PostgresAccountStore) Transfer(ctx context.Context, params interfaces.TransferParams) (*models.Transaction, error) {
	if params.From == params.To {
		return nil, storage.ErrSameAccount
	}

	var moved *models.Transaction
	err := withTx(ctx, p.db, func(tx *sql.Tx) error {
		if err := p.ensureAccount(ctx, tx, params.To); err != nil {
			return err
		}
		rows, err := p.lockAccounts(ctx, tx, params.From, params.To)
		if err != nil {
			return err
		}

		from, ok := rows[params.From]
		if !ok || from.lamports < params.Lamports {
			return fmt.Errorf("%w: %s cannot cover %d", storage.ErrInsufficientBalance, params.From, params.Lamports)
		}
		if params.Kind != models.KindWithdraw && (from.owner != systemOwner || from.dataLen > 0) {
			return fmt.Errorf("%w: %s", storage.ErrNotSystemAccount, params.From)
		}
		if rows[params.To].lamports > math.MaxUint64-params.Lamports {
			return fmt.Errorf("%w: crediting %s", storage.ErrBalanceOverflow, params.To)
		}

		if err := p.adjust(ctx, tx, params.From, `lamports - $2`, params.Lamports); err != nil {
			return err
		}
		if err := p.adjust(ctx, tx, params.To, `lamports + $2`, params.Lamports); err != nil {
			return err
		}

		moved, err = p.record(ctx, tx, params.Kind, params.From, params.To, params.Lamports)
		return err
	})
	if err != nil {
		return nil, err
	}
	return moved, nil
}

func (p *PostgresAccountStore) Airdrop(ctx context.Context, addr models.Address, lamports uint64) (*models.Transaction, error) {
	var credited *models.Transaction
	err := withTx(ctx, p.db, func(tx *sql.Tx) error {
		if err := p.ensureAccount(ctx, tx, addr); err != nil {
			return err
		}
		rows, err := p.lockAccounts(ctx, tx, addr)
		if err != nil {
			return err
		}
		if rows[addr].lamports > math.MaxUint64-lamports {
			return fmt.Errorf("%w: crediting %s", storage.ErrBalanceOverflow, addr)
		}
		if err := p.adjust(ctx, tx, addr, `lamports + $2`, lamports); err != nil {
			return err
		}
		credited, err = p.record(ctx, tx, models.KindAirdrop, models.Address{}, addr, lamports)
		return err
	})
	if err != nil {
		return nil, err
	}
	return credited, nil
}

func (p *PostgresAccountStore) TransactionsByAccount(ctx context.Context, addr models.Address) ([]models.Transaction, error) {
	const query = `SELECT id, kind, from_address, to_address, lamports, created_at FROM transactions
	WHERE from_address = $1 OR to_address = $1
	ORDER BY created_at, id`

	rows, err := p.db.QueryContext(ctx, query, addr.String())
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var result []models.Transaction
	for rows.Next() {
		var (
			tx       models.Transaction
			kind     string
			from, to string
			lamports decimal.Decimal
		)
		if err := rows.Scan(&tx.ID, &kind, &from, &to, &lamports, &tx.CreatedAt); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		tx.Kind = models.TransactionKind(kind)
		if tx.From, err = models.ParseAddress(from); err != nil {
			return nil, err
		}
		if tx.To, err = models.ParseAddress(to); err != nil {
			return nil, err
		}
		if tx.Lamports, err = fromNumeric(lamports); err != nil {
			return nil, err
		}
		result = append(result, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return result, nil
}

// systemOwner is the text form of the zero address that marks plain wallets.
var systemOwner = models.Address{}.String()

// ensureAccount inserts an empty system wallet at addr unless a row is already there.
func (p *PostgresAccountStore) ensureAccount(ctx context.Context, tx *sql.Tx, addr models.Address) error {
	const query = `INSERT INTO accounts (address, lamports, owner, data) VALUES ($1, 0, $2, '')
	ON CONFLICT (address) DO NOTHING`

	if _, err := tx.ExecContext(ctx, query, addr.String(), systemOwner); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

// lockAccounts takes row locks in address order so concurrent transfers over the
// same pair can't deadlock. Missing rows are absent from the result.
func (p *PostgresAccountStore) lockAccounts(ctx context.Context, tx *sql.Tx, addrs ...models.Address) (map[models.Address]lockedAccount, error) {
	const query = `SELECT lamports, owner, octet_length(data) FROM accounts WHERE address = $1 FOR UPDATE`

	sorted := append([]models.Address(nil), addrs...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].String() < sorted[j].String() })

	out := make(map[models.Address]lockedAccount, len(sorted))
	for _, a := range sorted {
		if _, done := out[a]; done {
			continue
		}
		var (
			lamports decimal.Decimal
			row      lockedAccount
		)
		err := tx.QueryRowContext(ctx, query, a.String()).Scan(&lamports, &row.owner, &row.dataLen)
		if errors.Is(err, sql.ErrNoRows) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		if row.lamports, err = fromNumeric(lamports); err != nil {
			return nil, err
		}
		out[a] = row
	}
	return out, nil
}

func (p *PostgresAccountStore) adjust(ctx context.Context, tx *sql.Tx, addr models.Address, expr string, lamports uint64) error {
	query := `UPDATE accounts SET lamports = ` + expr + ` WHERE address = $1`
	if _, err := tx.ExecContext(ctx, query, addr.String(), toNumeric(lamports)); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (p *PostgresAccountStore) record(ctx context.Context, tx *sql.Tx, kind models.TransactionKind, from, to models.Address, lamports uint64) (*models.Transaction, error) {
	const query = `INSERT INTO transactions (id, kind, from_address, to_address, lamports, created_at)
	VALUES ($1, $2, $3, $4, $5, $6)`

	t := &models.Transaction{
		ID:        uuid.New().String(),
		Kind:      kind,
		From:      from,
		To:        to,
		Lamports:  lamports,
		CreatedAt: p.now().UTC(),
	}
	if _, err := tx.ExecContext(ctx, query,
		t.ID, string(t.Kind), t.From.String(), t.To.String(), toNumeric(t.Lamports), t.CreatedAt); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return t, nil
}

var _ interfaces.AccountStore = (*PostgresAccountStore)(nil)
