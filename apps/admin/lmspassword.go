package main

import (
	"context"
	"fmt"
)

func (cli *commandLine) setLmsPassword(login, pwd string) error {
	s, err := cli.studentSvc.SetLmsPassword(context.Background(), login, pwd)
	if err != nil {
		return err
	}
	fmt.Printf("LMS password updated for %s (%s)\n", s.FullName(), s.LmsID)
	return nil
}
