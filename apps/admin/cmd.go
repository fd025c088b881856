package main

import (
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"syscall"

	"golang.org/x/term"

	"github.com/trezcool/academia/core/student"
)

var (
	readPasswordFunc = term.ReadPassword // mockable

	errHelp    = errors.New("help provided")
	errNoSQLDB = errors.New("migrate requires the postgres store")
)

type commandLine struct {
	db         *sql.DB // nil unless the postgres store is configured
	studentSvc *student.Service
}

func (cli *commandLine) printUsage() {
	fmt.Println("Usage:")
	fmt.Println("  migrate COMMAND [ARGS] - run a goose migration command (up, down, status, version...)")
	fmt.Println("  lmspassword -student EMAIL|LMSID - set a student's LMS password")
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	lmsPasswordCmd := flag.NewFlagSet("lmspassword", flag.ExitOnError)
	lmsPasswordLogin := lmsPasswordCmd.String("student", "", "The student's email or LMS ID. The password will be prompted next.")

	switch args[1] {
	case "migrate":
		if len(args) < 3 {
			cli.printUsage()
			return errHelp
		}
		return cli.migrate(args[2:])
	case "lmspassword":
		if err := lmsPasswordCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *lmsPasswordLogin == "" {
			lmsPasswordCmd.Usage()
			return errHelp
		}
		fmt.Print("Enter password:")
		pwd, err := readPasswordFunc(int(syscall.Stdin))
		fmt.Println()
		if err != nil {
			return err
		}
		if len(pwd) == 0 {
			lmsPasswordCmd.Usage()
			return errHelp
		}
		return cli.setLmsPassword(*lmsPasswordLogin, string(pwd))
	default:
		cli.printUsage()
		return errHelp
	}
}
