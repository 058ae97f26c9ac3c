package clipboard

import (
	"errors"
	"testing"
)

func TestServiceCopy(t *testing.T) {
	writeFailure := errors.New("xclip exited with status 1")
	testCases := []struct {
		name          string
		unsupported   bool
		writeErr      error
		expectedError error
		expectWrite   bool
	}{
		{name: "writes_text", expectWrite: true},
		{name: "reports_unsupported_host", unsupported: true, expectedError: ErrUnsupported},
		{name: "wraps_write_failure", writeErr: writeFailure, expectedError: writeFailure, expectWrite: true},
	}

	for _, testCase := range testCases {
		testCase := testCase
		t.Run(testCase.name, func(t *testing.T) {
			var written []string
			service := &Service{
				writeAll: func(text string) error {
					written = append(written, text)
					return testCase.writeErr
				},
				unsupported: func() bool { return testCase.unsupported },
			}
			err := service.Copy("models/raw_vault/jira/hubs/hub_issue.sql")
			if testCase.expectedError == nil && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if testCase.expectedError != nil && !errors.Is(err, testCase.expectedError) {
				t.Fatalf("expected %v, got %v", testCase.expectedError, err)
			}
			if testCase.expectWrite != (len(written) == 1) {
				t.Fatalf("unexpected writes %v", written)
			}
		})
	}
}
