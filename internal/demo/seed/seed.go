// Package seed builds a small SQLite examination database and the matching
// schema description so the service can be tried without SQL Server.
package seed

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"

	"github.com/examlens/examlens/internal/schema"
	"github.com/examlens/examlens/internal/storage"
)

const Dialect = "SQLite"

// Load recreates every table in one transaction.
func Load(ctx context.Context, db *sql.DB, tables []Table) error {
	if db == nil {
		return fmt.Errorf("database is required")
	}
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin seed transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, table := range tables {
		if err := loadTable(ctx, tx, table); err != nil {
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit seed transaction: %w", err)
	}
	return nil
}

func loadTable(ctx context.Context, tx *sql.Tx, table Table) error {
	name := quoteIdent(table.Name)
	if _, err := tx.ExecContext(ctx, "DROP TABLE IF EXISTS "+name); err != nil {
		return fmt.Errorf("drop %s: %w", table.Name, err)
	}

	defs := make([]string, len(table.Columns))
	placeholders := make([]string, len(table.Columns))
	for i, column := range table.Columns {
		defs[i] = quoteIdent(column.Name) + " " + column.Type
		placeholders[i] = "?"
	}
	if _, err := tx.ExecContext(ctx, fmt.Sprintf("CREATE TABLE %s (%s)", name, strings.Join(defs, ", "))); err != nil {
		return fmt.Errorf("create %s: %w", table.Name, err)
	}

	stmt, err := tx.PrepareContext(ctx, fmt.Sprintf("INSERT INTO %s VALUES (%s)", name, strings.Join(placeholders, ", ")))
	if err != nil {
		return fmt.Errorf("prepare insert into %s: %w", table.Name, err)
	}
	defer func() { _ = stmt.Close() }()
	for i, row := range table.Rows {
		if len(row) != len(table.Columns) {
			return fmt.Errorf("%s row %d has %d values, want %d", table.Name, i, len(row), len(table.Columns))
		}
		if _, err := stmt.ExecContext(ctx, row...); err != nil {
			return fmt.Errorf("insert into %s: %w", table.Name, err)
		}
	}
	return nil
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// Describe returns the schema description for tables, labelled as SQLite.
func Describe(tables []Table) (*schema.Description, error) {
	doc := schema.Document{
		Dialect: Dialect,
		Relationships: []string{
			"Student.IntakeID -> Intake.IntakeID",
			"Student.BranchID -> Branch.BranchID",
			"Student.DepartmentID -> Department.DepartmentID",
			"Student.TrackID -> Track.TrackID",
			"Instructor.DepartmentID -> Department.DepartmentID",
			"Course.InstructorID -> Instructor.InstructorID",
			"Track_Course links Track and Course",
			"Exam.CourseID -> Course.CourseID",
			"Exam_Result.ExamID -> Exam.ExamID and Exam_Result.StudentID -> Student.StudentID",
		},
		Hints: []string{
			`"Give me the intake of student Ahmed Ali": match F_Name and L_Name, select IntakeNumber.`,
			`"Average score in math for PowerBI track": join Exam_Result, Exam, Course and Track.`,
			"Dates are stored as ISO-8601 text; use strftime or date() to compare them.",
		},
		Example: schema.Example{
			Question: "Show the average exam score per track as a bar chart",
			Response: schema.ExampleResponse{
				SQLQuery: "SELECT t.TrackName, AVG(er.Score) AS AvgScore FROM Exam_Result er " +
					"INNER JOIN Student s ON er.StudentID = s.StudentID " +
					"INNER JOIN Track t ON s.TrackID = t.TrackID GROUP BY t.TrackName",
				VisualizationRequest: "bar chart of AvgScore by TrackName",
			},
		},
	}
	for _, table := range tables {
		doc.Tables = append(doc.Tables, schema.Table{Name: table.Name, Columns: table.ColumnNames()})
	}
	return schema.New(doc)
}

// Publish uploads the YAML rendering of description under key.
func Publish(ctx context.Context, publisher storage.ObjectPublisher, key string, description *schema.Description, logger *slog.Logger) (storage.ObjectInfo, error) {
	if publisher == nil {
		return storage.ObjectInfo{}, fmt.Errorf("object publisher is required")
	}
	if strings.TrimSpace(key) == "" {
		return storage.ObjectInfo{}, fmt.Errorf("object key is required")
	}
	body, err := description.Marshal()
	if err != nil {
		return storage.ObjectInfo{}, fmt.Errorf("marshal schema: %w", err)
	}
	info, err := publisher.Put(ctx, key, body, "application/yaml")
	if err != nil {
		return storage.ObjectInfo{}, err
	}
	if logger != nil {
		logger.Info("published schema description", slog.String("key", info.Key), slog.Int64("size", info.Size))
	}
	return info, nil
}
