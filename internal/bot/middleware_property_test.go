package bot

import (
	"testing"

	"pgregory.net/rapid"

	"snakepill/internal/config"
)

// TestAdminPermissionCheckProperty checks that a user is an operator if and
// only if their ID is listed in bot.admin_ids.
func TestAdminPermissionCheckProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		numAdmins := rapid.IntRange(0, 10).Draw(t, "numAdmins")
		adminIDs := make([]int64, numAdmins)
		for i := 0; i < numAdmins; i++ {
			adminIDs[i] = rapid.Int64Range(1, 1000000000).Draw(t, "adminID")
		}

		cfg := &config.Config{
			Bot: config.BotConfig{AdminIDs: adminIDs},
		}

		userID := rapid.Int64Range(1, 1000000000).Draw(t, "userID")
		isAdmin := cfg.IsAdmin(userID)

		expectedIsAdmin := false
		for _, id := range adminIDs {
			if id == userID {
				expectedIsAdmin = true
				break
			}
		}

		if isAdmin != expectedIsAdmin {
			t.Fatalf("Admin check mismatch: userID=%d, adminIDs=%v, expected=%v, got=%v",
				userID, adminIDs, expectedIsAdmin, isAdmin)
		}
	})
}

// TestAdminPermissionCheckWithKnownAdminProperty checks that every listed ID is recognized.
func TestAdminPermissionCheckWithKnownAdminProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		numAdmins := rapid.IntRange(1, 10).Draw(t, "numAdmins")
		adminIDs := make([]int64, numAdmins)
		for i := 0; i < numAdmins; i++ {
			adminIDs[i] = rapid.Int64Range(1, 1000000000).Draw(t, "adminID")
		}

		cfg := &config.Config{
			Bot: config.BotConfig{AdminIDs: adminIDs},
		}

		adminIndex := rapid.IntRange(0, numAdmins-1).Draw(t, "adminIndex")
		knownAdminID := adminIDs[adminIndex]

		if !cfg.IsAdmin(knownAdminID) {
			t.Fatalf("Known admin ID %d should be recognized as admin, adminIDs=%v", knownAdminID, adminIDs)
		}
	})
}

// TestEmptyAdminListRejectsEveryoneProperty checks that without configured
// operators nobody can run admin commands.
func TestEmptyAdminListRejectsEveryoneProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		cfg := &config.Config{}
		userID := rapid.Int64().Draw(t, "userID")
		if cfg.IsAdmin(userID) {
			t.Fatalf("user %d accepted with empty admin list", userID)
		}
	})
}

// TestParseTaxProperty checks that /distribute accepts exactly the positive amounts.
func TestParseTaxProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		units := rapid.Int64Range(-1_000_000, 1_000_000).Draw(t, "units")
		scale := rapid.IntRange(0, 9).Draw(t, "scale")

		arg := decimalString(units, scale)
		tax, ok := parseTax([]string{arg})
		if ok != (units > 0) {
			t.Fatalf("parseTax(%q) ok=%v", arg, ok)
		}
		if ok && tax.String() != arg {
			t.Fatalf("parseTax(%q) = %s", arg, tax)
		}
	})
}
