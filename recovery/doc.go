// Package recovery provides pluggable automatic-repair strategies and a
// registry that drives them.
//
// A strategy declares whether it can act on a given failure and how to act.
// The registry gates each attempt with a cooldown and a trailing-hour
// attempt cap, orders applicable strategies by recent success rate and
// disruptiveness, and chains them until one succeeds. Components opt into
// repair procedures by implementing the capability interfaces in this
// package; strategies only invoke capabilities a component actually
// exposes.
package recovery
