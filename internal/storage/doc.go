// Package storage persists the outreach ledger: which (user, reel) pairs have
// already been handled. The UNIQUE(user_id, reel_id) constraint is the single
// source of truth preventing duplicate contact across runs and restarts.
package storage
