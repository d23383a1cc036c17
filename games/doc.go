// Package games holds the grimoire game model.
//
// A host picks an edition and opens a session
// Players join by following the session's join link, until the host starts the game
// Starting checks the player count against the edition's setup table, then
// draws characters per category (townsfolk, outsiders, minions, demons) and shuffles them
// Each player can see only their own character
// The host sees every player's character and the order characters wake in at night

// Implementation details:
// - Catalog is loaded once and never mutated, so it is shared without locks
// - Store keeps one mutex per session; every operation on a session holds it
// - Sessions live until the process exits, unless a reaper is configured
package games
