package app

// MinPlayersToStart defines the minimum number of joined players required to
// start a game, and the floor below which a running game ends immediately.
// Keep this centralized so tests or local runs can adjust the rule without
// touching multiple call sites.
const MinPlayersToStart = 2
