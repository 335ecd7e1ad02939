package services

import (
	"errors"
	"fmt"
)

// AppError is a coded error that handlers translate into a response.
type AppError struct {
	Code    string
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Is matches on Code so wrapped instances compare equal to the sentinels.
func (e *AppError) Is(target error) bool {
	var t *AppError
	if errors.As(target, &t) {
		return t.Code == e.Code
	}
	return false
}

// Wrap returns a copy of e carrying cause.
func (e *AppError) Wrap(cause error) *AppError {
	return &AppError{Code: e.Code, Message: e.Message, Err: cause}
}

const (
	CodeInsufficientCredits      = "INSUFFICIENT_CREDITS"
	CodeInsufficientQuestionPool = "INSUFFICIENT_QUESTION_POOL"
	CodeCreditDebitFailed        = "CREDIT_DEBIT_FAILED"
	CodeVerificationFailed       = "VERIFICATION_FAILED"
	CodeSettlementUnconfirmed    = "SETTLEMENT_UNCONFIRMED"
	CodeRoundNotFound            = "ROUND_NOT_FOUND"
	CodeRoundClosed              = "ROUND_CLOSED"
	CodeRoundInProgress          = "ROUND_IN_PROGRESS"
	CodeWalletRequired           = "WALLET_REQUIRED"
	CodeInvalidWallet            = "INVALID_WALLET"
	CodeInvalidInput             = "INVALID_INPUT"
	CodeFeatureDisabled          = "FEATURE_DISABLED"
	CodeClaimNotEligible         = "CLAIM_NOT_ELIGIBLE"
	CodeClaimFailed              = "CLAIM_FAILED"
	CodeClaimUnrecorded          = "CLAIM_UNRECORDED"
)

var (
	ErrInsufficientCredits      = &AppError{Code: CodeInsufficientCredits, Message: "you need at least 1 credit to play"}
	ErrInsufficientQuestionPool = &AppError{Code: CodeInsufficientQuestionPool, Message: "not enough questions available"}
	ErrCreditDebitFailed        = &AppError{Code: CodeCreditDebitFailed, Message: "could not confirm credit deduction"}
	ErrVerificationFailed       = &AppError{Code: CodeVerificationFailed, Message: "could not fetch answers for verification"}
	ErrSettlementUnconfirmed    = &AppError{Code: CodeSettlementUnconfirmed, Message: "balance update could not be confirmed; your balance may be inconsistent, please contact support"}
	ErrRoundNotFound            = &AppError{Code: CodeRoundNotFound, Message: "round not found"}
	ErrRoundClosed              = &AppError{Code: CodeRoundClosed, Message: "round no longer accepts answers"}
	ErrRoundInProgress          = &AppError{Code: CodeRoundInProgress, Message: "a round is already in progress"}
	ErrWalletRequired           = &AppError{Code: CodeWalletRequired, Message: "wallet address is required"}
	ErrInvalidWallet            = &AppError{Code: CodeInvalidWallet, Message: "wallet address is not valid for the chain"}
	ErrInvalidInput             = &AppError{Code: CodeInvalidInput, Message: "invalid input"}
	ErrFeatureDisabled          = &AppError{Code: CodeFeatureDisabled, Message: "feature is disabled"}
	ErrClaimNotEligible         = &AppError{Code: CodeClaimNotEligible, Message: "need 10+ points or a 10+ streak to claim"}
	ErrClaimFailed              = &AppError{Code: CodeClaimFailed, Message: "could not redeem points, please try again"}
	ErrClaimUnrecorded          = &AppError{Code: CodeClaimUnrecorded, Message: "points were redeemed but the voucher could not be saved, please contact support"}
)
