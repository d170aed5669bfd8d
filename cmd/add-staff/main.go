/*
main.go - Account bootstrap tool

PURPOSE:
  Creates (or re-activates) an account directly in the database and prints
  a bearer token for it. This is how the first admin gets in, and how
  operators hand out tokens: the server itself has no login endpoint.

USAGE:
  add-staff -username=admin -groups=Admin
  add-staff -username=kim -name="Kim Minji" -groups=Staff

  An existing username keeps its id; its groups are replaced and it is
  activated. Reads the same OFFICE_* configuration as the server, so the
  token is signed with the server's secret.
*/
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/warp/backoffice/api"
	"github.com/warp/backoffice/config"
	"github.com/warp/backoffice/office"
	"github.com/warp/backoffice/store/sqlite"
)

func main() {
	username := flag.String("username", "", "account username (required)")
	name := flag.String("name", "", "display name")
	groups := flag.String("groups", string(office.GroupStaff), "comma-separated groups: Admin, Staff")
	dbPath := flag.String("db", "", "SQLite database path (overrides config)")
	flag.Parse()

	if err := run(context.Background(), os.Stdout, *username, *name, *groups, *dbPath); err != nil {
		fmt.Fprintf(os.Stderr, "add-staff: %v\n", err)
		os.Exit(1)
	}
}

// run prints the token alone on out so it can be captured by scripts.
func run(ctx context.Context, out io.Writer, username, name, groups, dbPath string) error {
	username = strings.TrimSpace(username)
	if username == "" {
		return fmt.Errorf("-username is required")
	}

	cfg, err := config.Load(ctx)
	if err != nil {
		return err
	}
	if dbPath != "" {
		cfg.DBPath = dbPath
	}

	tokens, err := api.NewTokens(cfg.JWTSecret, cfg.TokenTTL)
	if err != nil {
		return err
	}

	store, err := sqlite.New(cfg.DBPath, sqlite.WithLocation(cfg.Location()))
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer store.Close()

	wanted := splitGroups(groups)
	if len(wanted) == 0 {
		return fmt.Errorf("no known group in %q", groups)
	}

	dir := office.NewDirectory(store, store)
	staff, err := findOrRegister(ctx, dir, username, name, cfg)
	if err != nil {
		return err
	}

	active := true
	staff, err = dir.UpdateAccess(ctx, staff.ID, office.AccessChange{
		Active: &active,
		Groups: wanted,
	})
	if err != nil {
		return err
	}

	token, err := tokens.Issue(staff.ID)
	if err != nil {
		return err
	}

	fmt.Fprintf(os.Stderr, "account %s (%s) active in %v, token valid for %s\n", staff.Username, staff.ID, staff.Groups, cfg.TokenTTL)
	fmt.Fprintln(out, token)
	return nil
}

func findOrRegister(ctx context.Context, dir *office.Directory, username, name string, cfg *config.Config) (office.Staff, error) {
	accounts, err := dir.Accounts(ctx)
	if err != nil {
		return office.Staff{}, err
	}
	for _, s := range accounts {
		if s.Username == username {
			return s, nil
		}
	}
	return dir.Register(ctx, username, name, time.Now().In(cfg.Location()))
}

// splitGroups keeps the known group names of a comma-separated list.
func splitGroups(raw string) []string {
	var out []string
	for _, g := range strings.Split(raw, ",") {
		if g = strings.TrimSpace(g); office.Group(g).Valid() {
			out = append(out, g)
		}
	}
	return out
}
