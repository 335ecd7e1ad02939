package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"goat-rush/logger"
	"goat-rush/models"
	"goat-rush/repository"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

const (
	// ClaimThreshold is the points or streak needed to redeem a voucher.
	ClaimThreshold = 10
	// voucherStep is paid per full ClaimThreshold points.
	voucherStep = 10
)

// ClaimService exchanges a wallet's points and streak for a voucher that is
// paid out manually.
type ClaimService struct {
	store   LedgerStore
	wallets *WalletService
	board   *Leaderboard
	clock   clockwork.Clock
	policy  LedgerPolicy
}

func NewClaimService(store LedgerStore, wallets *WalletService, board *Leaderboard, clock clockwork.Clock, policy LedgerPolicy) *ClaimService {
	return &ClaimService{store: store, wallets: wallets, board: board, clock: clock, policy: policy}
}

// redeemTarget is the pre-image a successful reset consumed.
type redeemTarget struct {
	prev *models.User
}

func (t redeemTarget) landed(u *models.User) bool {
	return u.Points == 0 && u.Streak == 0
}

// stale reports that the read still shows the points and streak redeemed.
func (t redeemTarget) stale(u *models.User) bool {
	return u.Points == t.prev.Points && u.Streak == t.prev.Streak
}

// VoucherAmount is the payout for points: 10 per full 10 points.
func VoucherAmount(points int) decimal.Decimal {
	return decimal.NewFromInt(int64(points / ClaimThreshold * voucherStep))
}

// Claim resets points and streak to zero with a conditional update guarded
// on both, then records a pending voucher for the redeemed values. A
// settlement landing in between makes the update conflict; the claim is then
// recomputed from a fresh read.
func (s *ClaimService) Claim(ctx context.Context, wallet string) (*models.Claim, error) {
	log := logger.WithFields(logrus.Fields{"wallet": wallet, "op": "claim"})

	var pending *redeemTarget
	var lastErr error
	for attempt := 1; attempt <= s.policy.Mutation.attempts(); attempt++ {
		user, err := s.store.GetUser(ctx, wallet)
		switch {
		case errors.Is(err, repository.ErrUserNotFound):
			return nil, ErrClaimNotEligible
		case err != nil:
			lastErr = err
			log.Warnf("[claim] read failed on attempt %d: %v", attempt, err)
			if werr := s.policy.Mutation.wait(ctx, s.clock, attempt); werr != nil {
				return nil, ErrClaimFailed.Wrap(werr)
			}
			continue
		}

		if pending != nil && pending.landed(user) {
			log.Infof("[claim] reset from attempt %d confirmed late", attempt-1)
			return s.issue(ctx, pending.prev, user)
		}

		if user.Points < ClaimThreshold && user.Streak < ClaimThreshold {
			return nil, ErrClaimNotEligible
		}

		target := redeemTarget{prev: user}
		ok, err := s.store.CompareAndSwap(ctx, wallet,
			repository.Guard{"points": user.Points, "streak": user.Streak},
			map[string]any{"points": 0, "streak": 0})
		switch {
		case err != nil:
			lastErr = err
			log.Warnf("[claim] conditional update failed on attempt %d: %v", attempt, err)
		case !ok:
			lastErr = errors.New("points or streak changed concurrently")
			log.Warnf("[claim] conflict on attempt %d", attempt)
		default:
			pending = &target
			confirmed, err := s.confirm(ctx, wallet, target)
			if err != nil {
				return nil, ErrClaimFailed.Wrap(err)
			}
			if confirmed != nil {
				return s.issue(ctx, user, confirmed)
			}
			lastErr = errors.New("reset not visible after read-back")
			log.Warnf("[claim] read-back never showed the reset on attempt %d", attempt)
		}

		if werr := s.policy.Mutation.wait(ctx, s.clock, attempt); werr != nil {
			return nil, ErrClaimFailed.Wrap(werr)
		}
	}

	log.Errorf("[claim] giving up: %v", lastErr)
	return nil, ErrClaimFailed.Wrap(lastErr)
}

func (s *ClaimService) confirm(ctx context.Context, wallet string, target redeemTarget) (*models.User, error) {
	for i := 1; i <= s.policy.Verify.attempts(); i++ {
		user, err := s.store.GetUser(ctx, wallet)
		if err == nil && (target.landed(user) || !target.stale(user)) {
			return user, nil
		}
		if err := s.policy.Verify.wait(ctx, s.clock, i); err != nil {
			return nil, err
		}
	}
	return nil, nil
}

// issue records the voucher for the redeemed pre-image and pushes the reset
// profile to the HUD and leaderboards.
func (s *ClaimService) issue(ctx context.Context, redeemed, current *models.User) (*models.Claim, error) {
	now := s.clock.Now().UTC()
	claim := &models.Claim{
		ID:             uuid.NewString(),
		UserID:         redeemed.ID,
		WalletAddress:  redeemed.WalletAddress,
		Chain:          redeemed.Chain,
		Code:           voucherCode(now.UnixMilli()),
		Amount:         VoucherAmount(redeemed.Points),
		PointsRedeemed: redeemed.Points,
		StreakRedeemed: redeemed.Streak >= ClaimThreshold,
		Status:         models.ClaimStatusPending,
	}
	log := logger.WithFields(logrus.Fields{
		"wallet":  claim.WalletAddress,
		"voucher": claim.Code,
		"amount":  claim.Amount.StringFixed(2),
		"points":  claim.PointsRedeemed,
	})

	var err error
	for attempt := 1; attempt <= s.policy.Mutation.attempts(); attempt++ {
		if err = s.store.RecordClaim(ctx, claim); err == nil {
			break
		}
		log.Warnf("[claim] failed to record voucher on attempt %d: %v", attempt, err)
		if werr := s.policy.Mutation.wait(ctx, s.clock, attempt); werr != nil {
			err = werr
			break
		}
	}
	if err != nil {
		log.WithField("code", CodeClaimUnrecorded).Errorf("[claim] points redeemed without a voucher: %v", err)
		return nil, ErrClaimUnrecorded.Wrap(err)
	}
	log.Info("[claim] voucher issued")

	profile := current.Profile()
	s.wallets.Publish(profile)
	if s.board != nil {
		s.board.Record(ctx, profile)
	}
	return claim, nil
}

func voucherCode(ms int64) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))[:9]
	return fmt.Sprintf("GOAT-%d-%s", ms, suffix)
}
