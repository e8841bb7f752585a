// Package logx provides structured logging for the bot.
//
// It wraps zerolog behind a small Logger type so call sites stay stable while
// the Service swaps sinks (console, file) and levels from configuration.
package logx
