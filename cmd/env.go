package main

import (
	"context"
	"encoding/json"
	"io"
	"os"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/migrate-cli/internal/config"
	"github.com/sells-group/migrate-cli/internal/dedup"
	"github.com/sells-group/migrate-cli/internal/lexicon"
	"github.com/sells-group/migrate-cli/internal/store"
	"github.com/sells-group/migrate-cli/internal/validate"
	sfpkg "github.com/sells-group/migrate-cli/pkg/salesforce"
)

func initStore(ctx context.Context, c *config.Config) (store.Store, error) {
	var st store.Store
	switch c.Store.Driver {
	case "sqlite":
		dsn := c.Store.DatabaseURL
		if dsn == "" {
			dsn = "migrate.db"
		}
		s, err := store.NewSQLite(dsn)
		if err != nil {
			return nil, err
		}
		st = s
	case "postgres":
		s, err := store.NewPostgres(ctx, c.Store.DatabaseURL, &store.PoolConfig{
			MaxConns: c.Store.MaxConns,
			MinConns: c.Store.MinConns,
		})
		if err != nil {
			return nil, err
		}
		st = s
	default:
		return nil, eris.Errorf("unsupported store driver: %s", c.Store.Driver)
	}

	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}
	return st, nil
}

func initSalesforce(c *config.Config) (sfpkg.Client, error) {
	if c.Salesforce.ClientID == "" {
		return nil, eris.New("salesforce client ID is required (MIGRATE_SALESFORCE_CLIENT_ID)")
	}

	pemData, err := os.ReadFile(c.Salesforce.KeyPath)
	if err != nil {
		return nil, eris.Wrap(err, "read salesforce JWT private key")
	}

	return sfpkg.Connect(sfpkg.Creds{
		LoginURL:  c.Salesforce.LoginURL,
		Username:  c.Salesforce.Username,
		ClientID:  c.Salesforce.ClientID,
		RSAKeyPEM: string(pemData),
	}, sfpkg.WithRateLimit(c.Salesforce.RateLimit))
}

// loadLexicon returns the configured lexicon, or the built-in one.
func loadLexicon(c *config.Config) (*lexicon.Lexicon, error) {
	if c.Cleanse.LexiconPath == "" {
		return lexicon.Default(), nil
	}
	return lexicon.Load(c.Cleanse.LexiconPath)
}

// buildEngine compiles the configured rule file, falling back to the
// built-in rules of objectType.
func buildEngine(c *config.Config, lex *lexicon.Lexicon, objectType string) (*validate.Engine, error) {
	if c.Cleanse.RulesPath != "" {
		set, err := validate.LoadRules(c.Cleanse.RulesPath)
		if err != nil {
			return nil, err
		}
		return validate.NewEngineFromSet(set, validate.WithLexicon(lex))
	}

	rules := validate.DefaultRules(objectType)
	if rules == nil {
		return nil, eris.Errorf("no built-in rules for object type %q; set cleanse.rules_path", objectType)
	}
	return validate.NewEngine(rules, validate.WithLexicon(lex))
}

func newTracker(c *config.Config) *dedup.Tracker {
	return dedup.NewTracker(c.Cleanse.DedupKeys...)
}

// writeJSON encodes v indented to path, or to w when path is empty.
func writeJSON(w io.Writer, path string, v any) error {
	if path != "" {
		f, err := os.Create(path)
		if err != nil {
			return eris.Wrapf(err, "create output file %s", path)
		}
		defer f.Close() //nolint:errcheck
		w = f
		zap.L().Info("writing output", zap.String("path", path))
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
