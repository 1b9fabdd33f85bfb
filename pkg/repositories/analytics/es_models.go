package analytics

import (
	"time"

	"github.com/19722009abc/HelpyBot/pkg/entities"
)

// ESTransaction represents a ledger transaction document in Elasticsearch
type ESTransaction struct {
	TransactionID string    `json:"transaction_id"`
	AccountID     string    `json:"account_id"`
	Amount        int64     `json:"amount"`
	Type          string    `json:"type"`
	Reason        string    `json:"reason"`
	ReferenceID   string    `json:"reference_id,omitempty"`
	BalanceAfter  int64     `json:"balance_after"`
	Timestamp     time.Time `json:"timestamp"`
}

// ESOutcome represents a game outcome document in Elasticsearch
type ESOutcome struct {
	Game      string           `json:"game"`
	AccountID string           `json:"account_id"`
	Stake     int64            `json:"stake"`
	Payout    int64            `json:"payout"`
	Net       int64            `json:"net"`
	Result    string           `json:"result"`
	XP        int64            `json:"xp"`
	Fragments map[string]int64 `json:"fragments,omitempty"`
	Detail    string           `json:"detail,omitempty"`
	At        time.Time        `json:"at"`
}

func newESTransaction(tx *entities.Transaction) ESTransaction {
	return ESTransaction{
		TransactionID: tx.ID,
		AccountID:     tx.AccountID,
		Amount:        tx.Amount,
		Type:          string(tx.Type),
		Reason:        tx.Reason,
		ReferenceID:   tx.ReferenceID,
		BalanceAfter:  tx.BalanceAfter,
		Timestamp:     tx.Timestamp.UTC(),
	}
}

func newESOutcome(o *entities.Outcome) ESOutcome {
	doc := ESOutcome{
		Game:      string(o.Game),
		AccountID: o.AccountID,
		Stake:     o.Stake,
		Payout:    o.Payout,
		Net:       o.Net(),
		Result:    o.Result.String(),
		XP:        o.XP,
		Detail:    o.Detail,
		At:        o.At.UTC(),
	}
	if !o.Fragments.IsZero() {
		doc.Fragments = make(map[string]int64)
		for _, tier := range entities.FragmentTiers {
			if q := o.Fragments.Get(tier); q > 0 {
				doc.Fragments[tier.String()] = q
			}
		}
	}
	return doc
}

const transactionMapping = `{
	"mappings": {
		"properties": {
			"transaction_id": { "type": "keyword" },
			"account_id": { "type": "keyword" },
			"amount": { "type": "long" },
			"type": { "type": "keyword" },
			"reason": { "type": "text" },
			"reference_id": { "type": "keyword" },
			"balance_after": { "type": "long" },
			"timestamp": { "type": "date" }
		}
	},
	"settings": {
		"number_of_shards": 1,
		"number_of_replicas": 1,
		"refresh_interval": "1s"
	}
}`

const outcomeMapping = `{
	"mappings": {
		"properties": {
			"game": { "type": "keyword" },
			"account_id": { "type": "keyword" },
			"stake": { "type": "long" },
			"payout": { "type": "long" },
			"net": { "type": "long" },
			"result": { "type": "keyword" },
			"xp": { "type": "long" },
			"fragments": { "type": "object" },
			"detail": { "type": "text" },
			"at": { "type": "date" }
		}
	},
	"settings": {
		"number_of_shards": 1,
		"number_of_replicas": 1,
		"refresh_interval": "1s"
	}
}`
