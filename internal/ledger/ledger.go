package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sheikh-saqib/escrow-ledger/internal/derive"
	interfaces "github.com/sheikh-saqib/escrow-ledger/internal/interfaces"
	"github.com/sheikh-saqib/escrow-ledger/internal/lock"
	"github.com/sheikh-saqib/escrow-ledger/internal/models"
	"github.com/sheikh-saqib/escrow-ledger/internal/models/events"
	"github.com/sheikh-saqib/escrow-ledger/internal/rent"
	"github.com/sheikh-saqib/escrow-ledger/internal/storage"
	"go.uber.org/zap"
)

// DefaultTopic is where campaign events go unless WithPublisher names another.
const DefaultTopic = "escrow_ledger_events"

// Ledger runs the campaign lifecycle against a host account store.
// Value only ever moves through the store's atomic primitives; withdrawals are
// additionally serialised per account by the locker.
type Ledger struct {
	store     interfaces.AccountStore
	rent      rent.Schedule
	locker    interfaces.Locker
	publisher interfaces.EventPublisher
	topic     string
	logger    *zap.Logger
	now       func() time.Time
}

type Option func(*Ledger)

func WithRent(s rent.Schedule) Option {
	return func(l *Ledger) { l.rent = s }
}

func WithLocker(lk interfaces.Locker) Option {
	return func(l *Ledger) { l.locker = lk }
}

func WithPublisher(p interfaces.EventPublisher, topic string) Option {
	return func(l *Ledger) {
		l.publisher = p
		if topic != "" {
			l.topic = topic
		}
	}
}

func WithLogger(logger *zap.Logger) Option {
	return func(l *Ledger) { l.logger = logger }
}

// NewLedger wires a Ledger over store. Without options it uses the default rent
// schedule, in-process locks, no event publishing and a no-op logger.
func NewLedger(store interfaces.AccountStore, opts ...Option) *Ledger {
	l := &Ledger{
		store:  store,
		rent:   rent.Default(),
		locker: lock.NewLocal(),
		topic:  DefaultTopic,
		logger: zap.NewNop(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// ProveOwnership derives the canonical proof and ledger account address for owner.
func (l *Ledger) ProveOwnership(owner models.Address) (models.OwnerProof, models.Address, error) {
	addr, bump, err := derive.CampaignAddress(owner)
	if err != nil {
		return models.OwnerProof{}, models.Address{}, fmt.Errorf("derive campaign address: %w", err)
	}
	return models.OwnerProof{Owner: owner, Bump: bump}, addr, nil
}

// Initialize creates the owner's ledger account. The owner pays the reserved floor,
// which becomes the account's opening balance. A second call for the same owner
// fails with ErrAccountAlreadyExists.
func (l *Ledger) Initialize(ctx context.Context, owner models.Address, name, description string, targetFund uint64) (*Campaign, error) {
	if targetFund == 0 {
		return nil, ErrInvalidTarget
	}

	proof, addr, err := l.ProveOwnership(owner)
	if err != nil {
		return nil, err
	}

	fd := models.FundData{
		Name:        name,
		Description: description,
		TargetFund:  targetFund,
		Bump:        proof.Bump,
	}
	data, err := fd.MarshalBinary()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidCampaign, err)
	}

	floor := l.rent.MinimumBalance(models.FundDataSize)
	_, err = l.store.CreateAccount(ctx, interfaces.CreateAccountParams{
		Address:  addr,
		Payer:    owner,
		Owner:    derive.ProgramID(),
		Lamports: floor,
		Data:     data,
	})
	switch {
	case errors.Is(err, storage.ErrAccountExists):
		return nil, fmt.Errorf("%w: %s", ErrAccountAlreadyExists, addr)
	case errors.Is(err, storage.ErrInsufficientBalance):
		return nil, fmt.Errorf("%w: need %d", ErrInsufficientPayerBalance, floor)
	case err != nil:
		return nil, fmt.Errorf("create ledger account: %w", err)
	}

	l.logger.Info("campaign initialized",
		zap.String("campaign", addr.String()),
		zap.String("owner", owner.String()),
		zap.Uint64("target_fund", targetFund),
		zap.Uint8("bump", proof.Bump),
	)
	l.publish(ctx, addr, events.CampaignInitialized{
		EventID:     uuid.NewString(),
		Type:        events.TypeCampaignInitialized,
		Campaign:    addr,
		Owner:       owner,
		Name:        name,
		Description: description,
		TargetFund:  targetFund,
		TargetSOL:   models.LamportsToSOL(targetFund),
		Bump:        proof.Bump,
		OccurredAt:  l.now(),
	})

	return l.Campaign(ctx, addr)
}

// Fund moves amount from contributor into the ledger account. Anyone may fund any
// existing campaign, and a zero amount is accepted. The contributor must be a plain
// wallet: ledger accounts only lose value through Withdraw.
func (l *Ledger) Fund(ctx context.Context, contributor, account models.Address, amount uint64) (*models.Transaction, error) {
	if contributor == account {
		return nil, fmt.Errorf("%w: %s funds itself", ErrInvalidContributor, account)
	}
	if _, _, err := l.load(ctx, account); err != nil {
		return nil, err
	}

	tx, err := l.store.Transfer(ctx, interfaces.TransferParams{
		Kind:     models.KindFund,
		From:     contributor,
		To:       account,
		Lamports: amount,
	})
	switch {
	case errors.Is(err, storage.ErrInsufficientBalance):
		return nil, fmt.Errorf("%w: %s cannot cover %d", ErrInsufficientContributorBalance, contributor, amount)
	case errors.Is(err, storage.ErrNotSystemAccount), errors.Is(err, storage.ErrSameAccount):
		return nil, fmt.Errorf("%w: %w", ErrInvalidContributor, err)
	case errors.Is(err, storage.ErrBalanceOverflow):
		return nil, fmt.Errorf("%w: %w", ErrArithmeticOverflow, err)
	case err != nil:
		return nil, fmt.Errorf("fund %s: %w", account, err)
	}

	l.logger.Info("contribution received",
		zap.String("campaign", account.String()),
		zap.String("contributor", contributor.String()),
		zap.Uint64("lamports", amount),
		zap.String("transaction_id", tx.ID),
	)
	l.publish(ctx, account, events.ContributionReceived{
		EventID:       uuid.NewString(),
		Type:          events.TypeContributionReceived,
		TransactionID: tx.ID,
		Campaign:      account,
		Contributor:   contributor,
		Lamports:      amount,
		Amount:        models.LamportsToSOL(amount),
		OccurredAt:    tx.CreatedAt,
	})
	return tx, nil
}

// Withdraw moves the whole surplus above the reserved floor to the proven owner,
// provided the surplus has reached the target. Nothing changes on failure.
// The account stays open at its floor and can be funded and withdrawn again.
func (l *Ledger) Withdraw(ctx context.Context, proof models.OwnerProof, account models.Address) (uint64, error) {
	unlock, err := l.locker.Lock(ctx, account.String())
	if err != nil {
		return 0, fmt.Errorf("lock %s: %w", account, err)
	}
	defer unlock()

	acc, fd, err := l.load(ctx, account)
	if err != nil {
		return 0, err
	}

	if proof.Bump != fd.Bump || !derive.VerifyBinding(proof, account) {
		l.logger.Warn("withdraw rejected",
			zap.String("campaign", account.String()),
			zap.String("caller", proof.Owner.String()),
		)
		return 0, ErrUnauthorized
	}

	floor := l.rent.MinimumBalance(len(acc.Data))
	surplus, ok := Surplus(acc.Lamports, floor)
	if !ok {
		return 0, fmt.Errorf("%w: %w: balance %d below floor %d", ErrFundNotReachedYet, ErrArithmeticUnderflow, acc.Lamports, floor)
	}
	if surplus < fd.TargetFund {
		return 0, fmt.Errorf("%w: surplus %d of %d", ErrFundNotReachedYet, surplus, fd.TargetFund)
	}

	tx, err := l.store.Transfer(ctx, interfaces.TransferParams{
		Kind:     models.KindWithdraw,
		From:     account,
		To:       proof.Owner,
		Lamports: surplus,
	})
	switch {
	case errors.Is(err, storage.ErrInsufficientBalance):
		// balance dropped under us: another withdrawal won the race
		return 0, fmt.Errorf("%w: %w", ErrFundNotReachedYet, err)
	case errors.Is(err, storage.ErrBalanceOverflow):
		return 0, fmt.Errorf("%w: %w", ErrArithmeticOverflow, err)
	case err != nil:
		return 0, fmt.Errorf("withdraw %s: %w", account, err)
	}

	l.logger.Info("funds withdrawn",
		zap.String("campaign", account.String()),
		zap.String("owner", proof.Owner.String()),
		zap.Uint64("lamports", surplus),
		zap.String("transaction_id", tx.ID),
	)
	l.publish(ctx, account, events.FundsWithdrawn{
		EventID:       uuid.NewString(),
		Type:          events.TypeFundsWithdrawn,
		TransactionID: tx.ID,
		Campaign:      account,
		Owner:         proof.Owner,
		Lamports:      surplus,
		Amount:        models.LamportsToSOL(surplus),
		OccurredAt:    tx.CreatedAt,
	})
	return surplus, nil
}

// Campaign returns the current state of a ledger account.
func (l *Ledger) Campaign(ctx context.Context, account models.Address) (*Campaign, error) {
	acc, fd, err := l.load(ctx, account)
	if err != nil {
		return nil, err
	}

	floor := l.rent.MinimumBalance(len(acc.Data))
	surplus, _ := Surplus(acc.Lamports, floor)
	return &Campaign{
		Address:       account,
		FundData:      *fd,
		Balance:       acc.Lamports,
		ReservedFloor: floor,
		Surplus:       surplus,
		TargetReached: surplus >= fd.TargetFund,
	}, nil
}

// History lists every recorded movement touching account, oldest first.
func (l *Ledger) History(ctx context.Context, account models.Address) ([]models.Transaction, error) {
	if _, _, err := l.load(ctx, account); err != nil {
		return nil, err
	}
	return l.store.TransactionsByAccount(ctx, account)
}

// Balance reports the lamports held by any account, wallet or ledger.
// Unknown addresses hold nothing.
func (l *Ledger) Balance(ctx context.Context, addr models.Address) (uint64, error) {
	acc, err := l.store.GetAccount(ctx, addr)
	if errors.Is(err, storage.ErrAccountNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return acc.Lamports, nil
}

// Airdrop credits a wallet from nowhere. Only for local and test setups.
func (l *Ledger) Airdrop(ctx context.Context, addr models.Address, lamports uint64) (*models.Transaction, error) {
	tx, err := l.store.Airdrop(ctx, addr, lamports)
	if err != nil {
		return nil, fmt.Errorf("airdrop %s: %w", addr, err)
	}
	l.logger.Debug("airdrop", zap.String("address", addr.String()), zap.Uint64("lamports", lamports))
	return tx, nil
}

// load fetches account and decodes it as a ledger account owned by this program.
func (l *Ledger) load(ctx context.Context, account models.Address) (*models.Account, *models.FundData, error) {
	acc, err := l.store.GetAccount(ctx, account)
	if errors.Is(err, storage.ErrAccountNotFound) {
		return nil, nil, fmt.Errorf("%w: %s", ErrAccountNotFound, account)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("load %s: %w", account, err)
	}
	if acc.Owner != derive.ProgramID() {
		return nil, nil, fmt.Errorf("%w: %s", ErrNotLedgerAccount, account)
	}

	var fd models.FundData
	if err := fd.UnmarshalBinary(acc.Data); err != nil {
		return nil, nil, fmt.Errorf("%w: %w", ErrNotLedgerAccount, err)
	}
	return acc, &fd, nil
}

func (l *Ledger) publish(ctx context.Context, campaign models.Address, event any) {
	if l.publisher == nil {
		return
	}
	if err := l.publisher.Publish(ctx, l.topic, campaign.String(), event); err != nil {
		// the operation is already committed; surface the failure to operators
		l.logger.Error("publish event failed",
			zap.String("campaign", campaign.String()),
			zap.String("topic", l.topic),
			zap.Error(err),
		)
	}
}
