package redemption

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/fastprodman/loyalty/internal/infra/metrics"
	"github.com/fastprodman/loyalty/internal/infra/pgutils"
	"github.com/fastprodman/loyalty/internal/repos/redemptions"
	pgredemptions "github.com/fastprodman/loyalty/internal/repos/redemptions/postgres"
	"github.com/fastprodman/loyalty/internal/repos/rewards"
	pgrewards "github.com/fastprodman/loyalty/internal/repos/rewards/postgres"
	"github.com/fastprodman/loyalty/internal/services/ledger"
)

var ErrRewardUnavailable = errors.New("reward unavailable")

// Ledger applies a delta inside a caller-owned transaction and answers
// whether an account is open.
type Ledger interface {
	ApplyInTx(ctx context.Context, tx *sql.Tx, d ledger.Delta) (ledger.Result, error)
	CheckAccount(ctx context.Context, userID uint64) error
}

type Service struct {
	db          *sql.DB
	engine      Ledger
	rewards     rewards.Rewards
	redemptions redemptions.Redemptions
	metrics     *metrics.Collectors
	tracer      trace.Tracer
}

func New(db *sql.DB, engine Ledger, m *metrics.Collectors) *Service {
	return &Service{
		db:          db,
		engine:      engine,
		rewards:     pgrewards.New(db),
		redemptions: pgredemptions.New(db),
		metrics:     m,
		tracer:      otel.Tracer("loyalty/redemption"),
	}
}

// Request asks to exchange points for one reward. An empty IdempotencyKey
// gets a generated one so every redeem entry carries a unique reference.
type Request struct {
	UserID         uint64
	RewardID       uint64
	IdempotencyKey string
}

type Outcome struct {
	Balance        int64                  `json:"balance"`
	LifetimePoints int64                  `json:"lifetimePoints"`
	Tier           string                 `json:"tier"`
	Reward         rewards.Reward         `json:"reward"`
	Redemption     redemptions.Redemption `json:"redemption"`
}

// Redeem debits the reward cost and records the redemption in one DB
// transaction:
//
// 1) Read the reward FOR SHARE; missing or inactive fails before any debit.
// 2) Debit the cost through the balance engine (kind redeem).
// 3) Insert the redemption paired with the ledger entry.
func (s *Service) Redeem(ctx context.Context, req Request) (Outcome, error) {
	start := time.Now()

	ctx, span := s.tracer.Start(ctx, "redemption.redeem", trace.WithAttributes(
		attribute.String("redemption.user_id", fmt.Sprint(req.UserID)),
		attribute.String("redemption.reward_id", fmt.Sprint(req.RewardID)),
	))
	defer span.End()

	out, err := s.redeem(ctx, req)

	s.metrics.ObserveRedemption(resultLabel(err))

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())

		return Outcome{}, fmt.Errorf("redeem: %w", err)
	}

	span.SetAttributes(attribute.Int64("redemption.id", out.Redemption.ID))
	span.SetStatus(codes.Ok, "redeemed")

	slog.InfoContext(ctx, "reward redeemed",
		"user_id", req.UserID,
		"reward_id", req.RewardID,
		"points", out.Redemption.PointsSpent,
		"duration", time.Since(start),
	)

	return out, nil
}

func (s *Service) redeem(ctx context.Context, req Request) (Outcome, error) {
	err := ledger.ValidateUserID(req.UserID)
	if err != nil {
		return Outcome{}, err
	}

	// rewards.id is BIGSERIAL
	if req.RewardID == 0 || req.RewardID > math.MaxInt64 {
		return Outcome{}, fmt.Errorf("reward %d: %w", req.RewardID, ErrRewardUnavailable)
	}

	key := req.IdempotencyKey
	if key == "" {
		key = "redeem-" + uuid.NewString()
	}

	var out Outcome

	err = pgutils.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		// 1) Reward must exist and be active
		rw, err := s.rewards.GetForShare(ctx, tx, req.RewardID)
		if err != nil {
			if errors.Is(err, rewards.ErrRewardNotFound) {
				return fmt.Errorf("reward %d: %w", req.RewardID, ErrRewardUnavailable)
			}

			return fmt.Errorf("get reward: %w", err)
		}

		if !rw.Active {
			return fmt.Errorf("reward %d is inactive: %w", rw.ID, ErrRewardUnavailable)
		}

		// 2) Debit
		res, err := s.engine.ApplyInTx(ctx, tx, ledger.Delta{
			UserID:         req.UserID,
			Op:             ledger.OpRedeem,
			Amount:         rw.Cost,
			Description:    "Redeemed: " + rw.Name,
			IdempotencyKey: key,
		})
		if err != nil {
			return err
		}

		// 3) Pair the redemption with the ledger entry
		red, err := s.redemptions.Insert(ctx, tx, redemptions.Redemption{
			UserID:        req.UserID,
			RewardID:      rw.ID,
			PointsSpent:   rw.Cost,
			TransactionID: res.Transaction.ID,
		})
		if err != nil {
			return fmt.Errorf("insert redemption: %w", err)
		}

		out = Outcome{
			Balance:        res.Balance,
			LifetimePoints: res.LifetimePoints,
			Tier:           res.Tier,
			Reward:         rw,
			Redemption:     red,
		}

		return nil
	})
	if err != nil {
		return Outcome{}, storeError(err)
	}

	return out, nil
}

// ListRewards returns the redeemable catalog.
func (s *Service) ListRewards(ctx context.Context) ([]rewards.Reward, error) {
	list, err := s.rewards.ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("list rewards: %w", storeError(err))
	}

	if list == nil {
		list = []rewards.Reward{}
	}

	return list, nil
}

// History lists the user's redemptions, newest first. Unknown accounts
// fail with ledger.ErrNotFound, same as the ledger history.
func (s *Service) History(ctx context.Context, userID uint64, limit, offset int) ([]redemptions.Redemption, error) {
	err := s.engine.CheckAccount(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("redemption history: %w", err)
	}

	limit, offset = ledger.ClampPage(limit, offset)

	list, err := s.redemptions.ListByUser(ctx, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("redemption history: %w", storeError(err))
	}

	return list, nil
}

func storeError(err error) error {
	if errors.Is(err, ErrRewardUnavailable) {
		return err
	}

	return ledger.StoreError(err)
}

func resultLabel(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrRewardUnavailable):
		return "reward_unavailable"
	case errors.Is(err, ledger.ErrInsufficientBalance):
		return "insufficient_balance"
	case errors.Is(err, ledger.ErrNotFound):
		return "not_found"
	case errors.Is(err, ledger.ErrDuplicateTransaction):
		return "duplicate"
	case errors.Is(err, ledger.ErrStoreUnavailable):
		return "store_unavailable"
	default:
		return "error"
	}
}
