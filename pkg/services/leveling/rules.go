// Package leveling turns xp into levels and awards xp for messages and commands.
package leveling

import "time"

const (
	MessageXPMin      = 5
	MessageXPMax      = 15
	MessageXPCooldown = 60 * time.Second

	// DefaultCommandXP is awarded for commands missing from CommandXPTable
	DefaultCommandXP = 10
)

// CommandXPTable is the xp awarded per command
var CommandXPTable = map[string]int64{
	"daily":     25,
	"wallet":    10,
	"transfer":  15,
	"guess":     20,
	"top":       10,
	"shop":      10,
	"level":     10,
	"inventory": 10,
	"premium":   15,
}

// CommandXP returns the xp a command awards
func CommandXP(command string) int64 {
	if xp, ok := CommandXPTable[command]; ok {
		return xp
	}
	return DefaultCommandXP
}

// XPForNextLevel is the xp needed to leave level: floor(100*level*1.5)
func XPForNextLevel(level int) int64 {
	return int64(100 * float64(level) * 1.5)
}

// Apply adds gained xp and carries the excess over as many levels as it covers
func Apply(level int, xp, gained int64) (int, int64) {
	if level < 1 {
		level = 1
	}
	xp += gained
	if xp < 0 {
		xp = 0
	}
	for need := XPForNextLevel(level); xp >= need; need = XPForNextLevel(level) {
		xp -= need
		level++
	}
	return level, xp
}

// LevelInfo describes progress toward the next level
type LevelInfo struct {
	Level    int
	XP       int64
	Needed   int64
	Progress float64 // percent, 0-100
}

// Info computes a LevelInfo
func Info(level int, xp int64) LevelInfo {
	needed := XPForNextLevel(level)
	info := LevelInfo{Level: level, XP: xp, Needed: needed, Progress: 100}
	if needed > 0 {
		info.Progress = float64(xp) / float64(needed) * 100
	}
	return info
}
