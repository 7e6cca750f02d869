package models

// TransactionType represents the reason for a balance change
type TransactionType string

const (
	TransactionTypeGameWin     TransactionType = "game_win"
	TransactionTypeGameLoss    TransactionType = "game_loss"
	TransactionTypeGamePush    TransactionType = "game_push"
	TransactionTypeMinesEscrow TransactionType = "mines_escrow"
	TransactionTypeMinesPayout TransactionType = "mines_payout"
	TransactionTypeTransferIn  TransactionType = "transfer_in"
	TransactionTypeTransferOut TransactionType = "transfer_out"
	TransactionTypeDaily       TransactionType = "daily_reward"
	TransactionTypeAdjustment  TransactionType = "adjustment"
	TransactionTypeSet         TransactionType = "set"
)

// IsGamblingRelated returns true if the transaction came from a game
func (tt TransactionType) IsGamblingRelated() bool {
	switch tt {
	case TransactionTypeGameWin, TransactionTypeGameLoss, TransactionTypeGamePush,
		TransactionTypeMinesEscrow, TransactionTypeMinesPayout:
		return true
	}
	return false
}

// IsTransferType returns true if the transaction type represents a transfer
func (tt TransactionType) IsTransferType() bool {
	return tt == TransactionTypeTransferIn || tt == TransactionTypeTransferOut
}

// String returns the string representation of the transaction type
func (tt TransactionType) String() string {
	return string(tt)
}
