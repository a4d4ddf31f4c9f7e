package seed

import (
	"fmt"
	"math"
	"math/rand"
	"strings"
	"time"
)

type Column struct {
	Name string
	Type string
}

// Table is one demo table together with its generated rows. Row values are
// ordered like Columns.
type Table struct {
	Name    string
	Columns []Column
	Rows    [][]any
}

func (t Table) ColumnNames() []string {
	names := make([]string, len(t.Columns))
	for i, column := range t.Columns {
		names[i] = column.Name
	}
	return names
}

var (
	branches    = []string{"Smart Village", "Alexandria", "Assiut", "Mansoura", "Ismailia"}
	departments = []string{"Software Engineering", "Data Science", "Infrastructure"}
	tracks      = []string{"PowerBI", "Open Source", "Full Stack .NET", "Cloud Architecture", "Data Engineering"}
	courses     = []string{"Math", "SQL Server", "Python", "Statistics", "Networking", "Linux", "C#", "Data Warehousing"}
	firstNames  = []string{"Ahmed", "Mona", "Omar", "Sara", "Youssef", "Nour", "Karim", "Laila", "Hassan", "Mariam"}
	lastNames   = []string{"Ali", "Hassan", "Mahmoud", "Ibrahim", "Saleh", "Farouk", "Nabil", "Adel"}
)

// Generator builds a deterministic examination dataset for a seed.
type Generator struct {
	rnd      *rand.Rand
	students int
	start    time.Time
}

func NewGenerator(seed int64, students int) *Generator {
	return &Generator{
		rnd:      rand.New(rand.NewSource(seed)),
		students: students,
		start:    time.Date(2024, 10, 1, 0, 0, 0, 0, time.UTC),
	}
}

func (g *Generator) Tables() []Table {
	intakes := g.intakes()
	branch := Table{Name: "Branch", Columns: cols("BranchID:INTEGER", "BranchName:TEXT", "Location:TEXT")}
	for i, name := range branches {
		branch.Rows = append(branch.Rows, []any{i + 1, name, name + ", Egypt"})
	}
	department := Table{Name: "Department", Columns: cols("DepartmentID:INTEGER", "DepartmentName:TEXT")}
	for i, name := range departments {
		department.Rows = append(department.Rows, []any{i + 1, name})
	}
	track := Table{Name: "Track", Columns: cols("TrackID:INTEGER", "TrackName:TEXT", "Prerequisite1:TEXT", "Prerequisite2:TEXT")}
	for i, name := range tracks {
		track.Rows = append(track.Rows, []any{i + 1, name, pickOne(g.rnd, courses), nil})
	}
	instructor := g.instructors()
	course := Table{Name: "Course", Columns: cols("CourseID:INTEGER", "CourseName:TEXT", "Duration_days:INTEGER", "InstructorID:INTEGER", "coursedescription:TEXT")}
	for i, name := range courses {
		course.Rows = append(course.Rows, []any{i + 1, name, 5 + g.rnd.Intn(20), g.rnd.Intn(len(instructor.Rows)) + 1, "Introduction to " + name})
	}
	trackCourse := Table{Name: "Track_Course", Columns: cols("TrackID:INTEGER", "CourseID:INTEGER")}
	for t := range tracks {
		// Math is shared by every track so per-track averages always exist.
		trackCourse.Rows = append(trackCourse.Rows, []any{t + 1, 1})
		for _, c := range g.rnd.Perm(len(courses) - 1)[:3] {
			trackCourse.Rows = append(trackCourse.Rows, []any{t + 1, c + 2})
		}
	}
	student := g.studentTable(len(intakes.Rows))
	exam := Table{Name: "Exam", Columns: cols("ExamID:INTEGER", "CourseID:INTEGER", "InstructorID:INTEGER", "ExamTitle:TEXT", "ExamDate:TEXT", "DurationMinutes:INTEGER", "TotalMarks:INTEGER")}
	for i, row := range course.Rows {
		date := g.start.AddDate(0, 0, 30+i*7)
		exam.Rows = append(exam.Rows, []any{i + 1, row[0], row[3], fmt.Sprintf("%s Final", row[1]), date.Format(time.DateOnly), 60 + 30*g.rnd.Intn(3), 100})
	}
	result := g.results(student, trackCourse, len(exam.Rows))

	return []Table{intakes, branch, department, track, instructor, course, trackCourse, student, exam, result}
}

func (g *Generator) intakes() Table {
	table := Table{Name: "Intake", Columns: cols("IntakeID:INTEGER", "IntakeNumber:INTEGER", "StartDate:TEXT", "EndDate:TEXT")}
	for i := 0; i < 3; i++ {
		start := g.start.AddDate(0, 9*(i-2), 0)
		table.Rows = append(table.Rows, []any{i + 1, 43 + i, start.Format(time.DateOnly), start.AddDate(0, 9, 0).Format(time.DateOnly)})
	}
	return table
}

func (g *Generator) instructors() Table {
	table := Table{Name: "Instructor", Columns: cols("InstructorID:INTEGER", "InstructorName:TEXT", "Gender:TEXT", "Age:INTEGER", "Salary:REAL", "Email:TEXT", "DepartmentID:INTEGER")}
	for i := 0; i < 6; i++ {
		first, last := pickOne(g.rnd, firstNames), pickOne(g.rnd, lastNames)
		table.Rows = append(table.Rows, []any{
			i + 1,
			first + " " + last,
			pickOne(g.rnd, []string{"M", "F"}),
			30 + g.rnd.Intn(25),
			round2(15000 + g.rnd.Float64()*20000),
			fmt.Sprintf("instructor%d@iti.example", i+1),
			g.rnd.Intn(len(departments)) + 1,
		})
	}
	return table
}

func (g *Generator) studentTable(intakeCount int) Table {
	table := Table{Name: "Student", Columns: cols(
		"StudentID:INTEGER", "F_Name:TEXT", "L_Name:TEXT", "Gender:TEXT", "Age:INTEGER", "Email:TEXT",
		"Password:TEXT", "Faculty:TEXT", "DepartmentID:INTEGER", "IntakeID:INTEGER", "BranchID:INTEGER", "TrackID:INTEGER",
	)}
	for i := 0; i < g.students; i++ {
		first, last := pickOne(g.rnd, firstNames), pickOne(g.rnd, lastNames)
		intake := g.rnd.Intn(intakeCount) + 1
		if i == 0 {
			first, last, intake = "Ahmed", "Ali", intakeCount
		}
		table.Rows = append(table.Rows, []any{
			i + 1,
			first,
			last,
			pickOne(g.rnd, []string{"M", "F"}),
			21 + g.rnd.Intn(8),
			fmt.Sprintf("student%04d@iti.example", i+1),
			"demo",
			pickOne(g.rnd, []string{"Engineering", "Computer Science", "Commerce", "Science"}),
			g.rnd.Intn(len(departments)) + 1,
			intake,
			g.rnd.Intn(len(branches)) + 1,
			g.rnd.Intn(len(tracks)) + 1,
		})
	}
	return table
}

// results gives every student a score for each exam of their track.
func (g *Generator) results(student, trackCourse Table, examCount int) Table {
	table := Table{Name: "Exam_Result", Columns: cols("ResultID:INTEGER", "ExamID:INTEGER", "StudentID:INTEGER", "Score:REAL", "Status:TEXT", "Percentage:REAL")}
	byTrack := map[int][]int{}
	for _, row := range trackCourse.Rows {
		byTrack[row[0].(int)] = append(byTrack[row[0].(int)], row[1].(int))
	}
	id := 0
	for _, row := range student.Rows {
		for _, courseID := range byTrack[row[11].(int)] {
			if courseID > examCount {
				continue
			}
			id++
			score := round2(math.Min(100, math.Max(0, 72+g.rnd.NormFloat64()*14)))
			status := "Pass"
			if score < 60 {
				status = "Fail"
			}
			// Exam IDs follow course IDs one to one.
			table.Rows = append(table.Rows, []any{id, courseID, row[0], score, status, score})
		}
	}
	return table
}

func cols(specs ...string) []Column {
	out := make([]Column, len(specs))
	for i, spec := range specs {
		name, typ, _ := strings.Cut(spec, ":")
		out[i] = Column{Name: name, Type: typ}
	}
	return out
}

func round2(value float64) float64 {
	return math.Round(value*100) / 100
}

func pickOne(r *rand.Rand, values []string) string {
	return values[r.Intn(len(values))]
}
