package exec

import "github.com/wolfleong/gobatis/merr"

func newExecutorError(statementID, op string, err error) error {
	return merr.NewExecutorError(statementID, op, err)
}

func errSessionClosed() error {
	return merr.ErrSessionClosed
}
