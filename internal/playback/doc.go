// Package playback reveals a finished reply word by word.
//
// Machine holds the transition logic and is driven entirely by method calls:
// Start, Tick, Pause, Resume, Skip, Interrupt and Abandon. It never touches a
// real clock. Timer ticks are requested through the Timer interface and
// delivered back with Machine.Tick, tagged with the token of the arm that
// produced them; ticks carrying any other token are dropped, so a paused,
// completed or superseded session can never be advanced by a late tick.
//
// Callers must serialise all calls on one goroutine. The Bubble Tea update
// loop does this in interactive mode and Runner does it in plain mode.
package playback
