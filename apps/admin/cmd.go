package main

import (
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"
	"syscall"

	"github.com/go-playground/validator/v10"
	"golang.org/x/term"

	"github.com/trezcool/gradebook/core/grade"
	"github.com/trezcool/gradebook/core/user"
)

var (
	readPasswordFunc = term.ReadPassword // mockable

	errHelp = errors.New("help provided")
)

type commandLine struct {
	db       *sql.DB
	usrRepo  user.Repository
	usrSvc   user.ServiceInterface
	gradeSvc grade.ServiceInterface
	validate *validator.Validate
	out      io.Writer
}

func (cli *commandLine) printUsage() {
	fmt.Println("Usage:")
	fmt.Println("  migrate COMMAND [ARGS] - run goose migration COMMAND (up, down, status, ...)")
	fmt.Println("  adduser -school SCHOOL -username USERNAME -email EMAIL [-name NAME] [-role admin|teacher|student] - create or update a user")
	fmt.Println("  report -school SCHOOL -year YYYY/YYYY -class CLASS -kind periodic|yearly|masters [-period PERIOD] [-subject SUBJECT] [-teacher TEACHER] [-students ID,ID] - print a report as JSON")
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	addUserCmd := flag.NewFlagSet("adduser", flag.ExitOnError)
	addUserSchool := addUserCmd.String("school", "", "The user's school.")
	addUserName := addUserCmd.String("name", "", "The user's full name. Defaults to the username.")
	addUserUname := addUserCmd.String("username", "", "The user's username. The password will be prompted next.")
	addUserEmail := addUserCmd.String("email", "", "The user's email.")
	addUserRole := addUserCmd.String("role", "admin", "One of admin, teacher or student.")

	reportCmd := flag.NewFlagSet("report", flag.ExitOnError)
	reportSchool := reportCmd.String("school", "", "The class' school.")
	reportYear := reportCmd.String("year", "", "The academic year, e.g. 2020/2021.")
	reportClass := reportCmd.String("class", "", "The class.")
	reportKind := reportCmd.String("kind", "periodic", "One of periodic, yearly or masters.")
	reportPeriod := reportCmd.String("period", "", "The period of a periodic report.")
	reportSubject := reportCmd.String("subject", "", "Restricts a masters report to one subject.")
	reportTeacher := reportCmd.String("teacher", "", "Restricts a masters report to one teacher.")
	reportStudents := reportCmd.String("students", "", "Comma separated student IDs to keep in the report.")

	switch args[1] {
	case "migrate":
		if len(args) < 3 {
			cli.printUsage()
			return errHelp
		}
		return cli.migrate(args[2:])

	case "adduser":
		if err := addUserCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *addUserSchool == "" || (*addUserUname == "" && *addUserEmail == "") {
			addUserCmd.Usage()
			return errHelp
		}
		roles, ok := roleFlags[*addUserRole]
		if !ok {
			addUserCmd.Usage()
			return errHelp
		}
		fmt.Print("Enter password:")
		pwd, err := readPasswordFunc(syscall.Stdin)
		fmt.Println()
		if err != nil {
			return err
		}
		if len(pwd) == 0 {
			addUserCmd.Usage()
			return errHelp
		}
		return cli.addUser(*addUserSchool, *addUserName, *addUserUname, *addUserEmail, string(pwd), roles)

	case "report":
		if err := reportCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *reportSchool == "" || *reportYear == "" || *reportClass == "" {
			reportCmd.Usage()
			return errHelp
		}
		rq := grade.ReportQuery{
			SchoolID:     *reportSchool,
			AcademicYear: *reportYear,
			ClassID:      *reportClass,
			Period:       grade.Period(*reportPeriod),
			Subject:      *reportSubject,
			TeacherID:    *reportTeacher,
		}
		if *reportStudents != "" {
			rq.StudentIDs = strings.Split(*reportStudents, ",")
		}
		return cli.report(*reportKind, rq)

	default:
		cli.printUsage()
		return errHelp
	}
}
