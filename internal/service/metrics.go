package service

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	tapsAccepted = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "tap_syncs_accepted_total",
		Help: "Tap sync batches that passed the anti-cheat cap",
	})
	tapsRejected = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "tap_syncs_rejected_total",
		Help: "Tap sync batches rejected by the anti-cheat cap",
	})
	tapsEarned = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "tap_coins_earned_total",
		Help: "Primary currency granted through tap syncs",
	})
	commissionsPaid = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "referral_commission_paid_total",
		Help: "Primary currency credited to referrers",
	})
	spinsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "reward_spins_total",
		Help: "Completed reward wheel draws",
	})
	spinsOnCooldown = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "reward_spins_cooldown_total",
		Help: "Reward draws refused because the cooldown was active",
	})
	purchasesApplied = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "purchases_applied_total",
		Help: "Payment confirmations applied to the ledger",
	}, []string{"item"})
	purchasesDuplicate = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "purchases_duplicate_total",
		Help: "Payment confirmations skipped as already processed",
	})
)

func init() {
	prometheus.MustRegister(
		tapsAccepted, tapsRejected, tapsEarned, commissionsPaid,
		spinsTotal, spinsOnCooldown, purchasesApplied, purchasesDuplicate,
	)
}
