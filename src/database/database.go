package database

import (
	"database/sql"
	stdlog "log"

	"github.com/opencaptable/captable/backend/src/logger"
	_ "modernc.org/sqlite"
)

var DB *sql.DB

func InitDB(databasePath string) {
	db, err := sql.Open("sqlite", databasePath)
	if err != nil {
		stdlog.Fatalf("failed to open database at %s: %v", databasePath, err)
	}

	DB = db

	if logger.L != nil {
		logger.L.Info("Checking database migrations", "databasePath", databasePath)
	} else {
		stdlog.Println("Checking database migrations for:", databasePath)
	}
	migrateTransactionsTable()

	createTableStatement := `
	CREATE TABLE IF NOT EXISTS issuers (
		id TEXT PRIMARY KEY,
		legal_name TEXT NOT NULL,
		shares_authorized TEXT NOT NULL DEFAULT '0',
		api_key TEXT NOT NULL UNIQUE,
		api_secret_hash TEXT NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS stakeholders (
		id TEXT PRIMARY KEY,
		issuer_id TEXT NOT NULL,
		legal_name TEXT NOT NULL,
		relationship TEXT NOT NULL DEFAULT 'OTHER',
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		FOREIGN KEY(issuer_id) REFERENCES issuers(id)
	);

	CREATE TABLE IF NOT EXISTS stock_classes (
		id TEXT PRIMARY KEY,
		issuer_id TEXT NOT NULL,
		name TEXT NOT NULL,
		class_type TEXT NOT NULL DEFAULT 'COMMON',
		votes_per_share TEXT NOT NULL DEFAULT '1',
		shares_authorized TEXT NOT NULL DEFAULT '0',
		conversion_rights TEXT,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		FOREIGN KEY(issuer_id) REFERENCES issuers(id)
	);

	CREATE TABLE IF NOT EXISTS stock_plans (
		id TEXT PRIMARY KEY,
		issuer_id TEXT NOT NULL,
		plan_name TEXT NOT NULL,
		initial_shares_reserved TEXT NOT NULL DEFAULT '0',
		stock_class_ids TEXT,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		FOREIGN KEY(issuer_id) REFERENCES issuers(id)
	);

	CREATE TABLE IF NOT EXISTS captable_transactions (
		id TEXT PRIMARY KEY,
		issuer_id TEXT NOT NULL,
		security_id TEXT NOT NULL,
		tx_type TEXT NOT NULL,
		date TEXT NOT NULL,
		stakeholder_id TEXT,
		stock_class_id TEXT,
		stock_plan_id TEXT,
		security_id_ref TEXT,
		from_stakeholder_id TEXT,
		to_stakeholder_id TEXT,
		quantity TEXT NOT NULL DEFAULT '0',
		share_price TEXT NOT NULL DEFAULT '0',
		exercise_price TEXT NOT NULL DEFAULT '0',
		purchase_price TEXT NOT NULL DEFAULT '0',
		investment_amount TEXT NOT NULL DEFAULT '0',
		currency TEXT,
		issuance_type TEXT,
		compensation_type TEXT,
		convertible_type TEXT,
		reason TEXT,
		resulting_security_ids TEXT,
		vesting_schedule_id TEXT,
		expiration_date TEXT,
		new_shares_authorized TEXT NOT NULL DEFAULT '0',
		new_shares_reserved TEXT NOT NULL DEFAULT '0',
		triggers TEXT,
		hash_id TEXT,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		FOREIGN KEY(issuer_id) REFERENCES issuers(id),
		UNIQUE(issuer_id, hash_id)
	);

	CREATE INDEX IF NOT EXISTS idx_captable_transactions_issuer
		ON captable_transactions(issuer_id, date, created_at);
	`

	_, err = DB.Exec(createTableStatement)
	if err != nil {
		if logger.L != nil {
			logger.L.Error("failed to create tables", "error", err)
		}
		stdlog.Fatalf("failed to create tables: %v", err)
	}
	if logger.L != nil {
		logger.L.Info("Database tables ensured/created.")
	} else {
		stdlog.Println("Database tables ensured/created.")
	}
}

// migrateTransactionsTable backfills columns added after the first release.
func migrateTransactionsTable() {
	var tableName string
	err := DB.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name='captable_transactions'").Scan(&tableName)
	if err != nil {
		if err == sql.ErrNoRows {
			if logger.L != nil {
				logger.L.Info("'captable_transactions' table does not exist, no migration needed as table will be created.")
			} else {
				stdlog.Println("'captable_transactions' table does not exist, no migration needed as table will be created.")
			}
			return
		}
		if logger.L != nil {
			logger.L.Error("Error checking for 'captable_transactions' table", "error", err)
		} else {
			stdlog.Printf("Error checking for 'captable_transactions' table: %v", err)
		}
		return
	}

	rows, err := DB.Query("PRAGMA table_info(captable_transactions)")
	if err != nil {
		if logger.L != nil {
			logger.L.Error("Error querying table schema for 'captable_transactions'", "error", err)
		} else {
			stdlog.Printf("Error querying table schema for 'captable_transactions': %v", err)
		}
		return
	}
	defer rows.Close()

	columnExists := make(map[string]bool)
	for rows.Next() {
		var cid, pk int
		var name, dataType string
		var notnullVal int
		var dfltValue interface{}

		if err := rows.Scan(&cid, &name, &dataType, &notnullVal, &dfltValue, &pk); err != nil {
			if logger.L != nil {
				logger.L.Error("Error scanning column info for 'captable_transactions'", "error", err)
			} else {
				stdlog.Printf("Error scanning column info for 'captable_transactions': %v", err)
			}
			return
		}
		columnExists[name] = true
	}
	if err = rows.Err(); err != nil {
		if logger.L != nil {
			logger.L.Error("Error iterating over column info for 'captable_transactions'", "error", err)
		}
		return
	}

	if _, ok := columnExists["hash_id"]; !ok {
		if _, err := DB.Exec("ALTER TABLE captable_transactions ADD COLUMN hash_id TEXT"); err != nil {
			logger.L.Error("Error adding 'hash_id' column to 'captable_transactions' table", "error", err)
		} else {
			logger.L.Info("Added 'hash_id' column to 'captable_transactions' table")
		}
	}
	if _, ok := columnExists["vesting_schedule_id"]; !ok {
		if _, err := DB.Exec("ALTER TABLE captable_transactions ADD COLUMN vesting_schedule_id TEXT"); err != nil {
			logger.L.Error("Error adding 'vesting_schedule_id' column to 'captable_transactions' table", "error", err)
		} else {
			logger.L.Info("Added 'vesting_schedule_id' column to 'captable_transactions' table")
		}
	}
	if _, ok := columnExists["expiration_date"]; !ok {
		if _, err := DB.Exec("ALTER TABLE captable_transactions ADD COLUMN expiration_date TEXT"); err != nil {
			logger.L.Error("Error adding 'expiration_date' column to 'captable_transactions' table", "error", err)
		} else {
			logger.L.Info("Added 'expiration_date' column to 'captable_transactions' table")
		}
	}
}
