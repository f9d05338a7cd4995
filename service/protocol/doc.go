// Package protocol implements the per-task approval state machine: a fixed
// four-phase sequence that turns one operator decision into two committed
// remote writes, a paused hand-off to the human-review gate, or a terminal
// failure carrying the phase it halted in.
package protocol
