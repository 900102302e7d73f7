// How a round of "Qu'en dira-t-on ?" plays out
//
// - A player creates a room and shares its 4-character code (or the QR link)
// - Everyone joins with a nickname and submits candidate names: friends,
//   celebrities, family members, fictional characters, anything goes
// - With at least 4 names in the pool, the host launches the game
// - One participant is drawn at random as the MJ (maître du jeu); only the MJ
//   sees which name they secretly pick as the target
// - The system deals yes/no questions one at a time; the MJ answers OUI or
//   NON about the secret character, and everyone debates what it means
// - The other players tap names to eliminate them from the board
// - If the secret name ends up as the last one standing, the party wins
// - If anyone eliminates the secret name, the round is immediately lost
//
// Questions are dealt uniformly at random and may repeat; the debate is the
// point, not the novelty of the question.

package main
