// Package schema declares the SQL tables backing the knowledge base: one
// table per fact kind plus the conflict ledger.
package schema

import (
	"context"
	"fmt"

	"entgo.io/ent/dialect"
	entschema "entgo.io/ent/dialect/sql/schema"
	"entgo.io/ent/schema/field"

	"github.com/papercomputeco/verity/pkg/fact"
)

// Fact columns shared by every fact table.
const (
	ColumnID                 = "id"
	ColumnUserID             = "user_id"
	ColumnIdentityKey        = "identity_key"
	ColumnScope              = "scope"
	ColumnValue              = "value"
	ColumnConfidenceScore    = "confidence_score"
	ColumnSourceAuthority    = "source_authority"
	ColumnVerificationStatus = "verification_status"
	ColumnValidFrom          = "valid_from"
	ColumnValidTo            = "valid_to"
	ColumnLastVerifiedAt     = "last_verified_at"
	ColumnCreatedAt          = "created_at"
)

// Kind specific fact columns.
const (
	ColumnSubject    = "subject"
	ColumnPredicate  = "predicate"
	ColumnTitle      = "title"
	ColumnContextKey = "context_key"
)

// Conflict ledger columns.
const (
	ConflictsTable         = "fact_conflicts"
	ColumnFactKind         = "fact_kind"
	ColumnFactTable        = "fact_table"
	ColumnFactID           = "fact_id"
	ColumnConflictType     = "conflict_type"
	ColumnResolutionStatus = "resolution_status"
	ColumnDetails          = "details"
)

var (
	// BusinessFactsTable holds relational facts.
	BusinessFactsTable = factTable(fact.KindRelational,
		&entschema.Column{Name: ColumnSubject, Type: field.TypeString},
		&entschema.Column{Name: ColumnPredicate, Type: field.TypeString},
	)

	// RiskFactsTable holds risk records.
	RiskFactsTable = factTable(fact.KindRisk,
		&entschema.Column{Name: ColumnTitle, Type: field.TypeString},
	)

	// CompanyContextTable holds singleton context entries.
	CompanyContextTable = factTable(fact.KindContext,
		&entschema.Column{Name: ColumnContextKey, Type: field.TypeString},
	)

	// FactConflictsTable is the append-only conflict ledger.
	FactConflictsTable = entschema.NewTable(ConflictsTable).
		AddPrimary(&entschema.Column{Name: ColumnID, Type: field.TypeString}).
		AddColumn(&entschema.Column{Name: ColumnUserID, Type: field.TypeString}).
		AddColumn(&entschema.Column{Name: ColumnFactKind, Type: field.TypeString}).
		AddColumn(&entschema.Column{Name: ColumnFactTable, Type: field.TypeString}).
		AddColumn(&entschema.Column{Name: ColumnFactID, Type: field.TypeString}).
		AddColumn(&entschema.Column{Name: ColumnConflictType, Type: field.TypeString}).
		AddColumn(&entschema.Column{Name: ColumnResolutionStatus, Type: field.TypeString}).
		AddColumn(&entschema.Column{Name: ColumnDetails, Type: field.TypeJSON}).
		AddColumn(&entschema.Column{Name: ColumnCreatedAt, Type: field.TypeTime}).
		AddIndex("fact_conflicts_user_id_resolution_status", false, []string{ColumnUserID, ColumnResolutionStatus}).
		AddIndex("fact_conflicts_fact_id", false, []string{ColumnFactID})

	// Tables is every table the knowledge base needs.
	Tables = []*entschema.Table{
		BusinessFactsTable,
		RiskFactsTable,
		CompanyContextTable,
		FactConflictsTable,
	}
)

// KindColumns returns the kind specific columns of a fact table, in the
// order they appear after the shared columns.
func KindColumns(k fact.Kind) []string {
	switch k {
	case fact.KindRelational:
		return []string{ColumnSubject, ColumnPredicate}
	case fact.KindRisk:
		return []string{ColumnTitle}
	case fact.KindContext:
		return []string{ColumnContextKey}
	default:
		return nil
	}
}

// FactColumns returns every column of the fact table for k.
func FactColumns(k fact.Kind) []string {
	return append([]string{
		ColumnID,
		ColumnUserID,
		ColumnIdentityKey,
		ColumnScope,
		ColumnValue,
		ColumnConfidenceScore,
		ColumnSourceAuthority,
		ColumnVerificationStatus,
		ColumnValidFrom,
		ColumnValidTo,
		ColumnLastVerifiedAt,
		ColumnCreatedAt,
	}, KindColumns(k)...)
}

// Migrate creates or updates the tables. Changes are append-only: columns
// and indexes are never dropped.
func Migrate(ctx context.Context, drv dialect.Driver) error {
	m, err := entschema.NewMigrate(drv,
		entschema.WithDropColumn(false),
		entschema.WithDropIndex(false),
		entschema.WithForeignKeys(false),
	)
	if err != nil {
		return fmt.Errorf("failed to create migrator: %w", err)
	}
	if err := m.Create(ctx, Tables...); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

func factTable(k fact.Kind, extra ...*entschema.Column) *entschema.Table {
	name := k.Table()
	t := entschema.NewTable(name).
		AddPrimary(&entschema.Column{Name: ColumnID, Type: field.TypeString}).
		AddColumn(&entschema.Column{Name: ColumnUserID, Type: field.TypeString}).
		AddColumn(&entschema.Column{Name: ColumnIdentityKey, Type: field.TypeString}).
		AddColumn(&entschema.Column{Name: ColumnScope, Type: field.TypeString}).
		AddColumn(&entschema.Column{Name: ColumnValue, Type: field.TypeString, Size: 4096}).
		AddColumn(&entschema.Column{Name: ColumnConfidenceScore, Type: field.TypeFloat64}).
		AddColumn(&entschema.Column{Name: ColumnSourceAuthority, Type: field.TypeString}).
		AddColumn(&entschema.Column{Name: ColumnVerificationStatus, Type: field.TypeString}).
		AddColumn(&entschema.Column{Name: ColumnValidFrom, Type: field.TypeTime}).
		AddColumn(&entschema.Column{Name: ColumnValidTo, Type: field.TypeTime, Nullable: true}).
		AddColumn(&entschema.Column{Name: ColumnLastVerifiedAt, Type: field.TypeTime}).
		AddColumn(&entschema.Column{Name: ColumnCreatedAt, Type: field.TypeTime})

	for _, c := range extra {
		t.AddColumn(c)
	}

	// Working set reads filter on user, scope and open validity together.
	t.AddIndex(name+"_user_id_scope_valid_to", false, []string{ColumnUserID, ColumnScope, ColumnValidTo})
	t.AddIndex(name+"_user_id_identity_key_valid_to", false, []string{ColumnUserID, ColumnIdentityKey, ColumnValidTo})
	return t
}
