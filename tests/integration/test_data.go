package integration

import (
	"fmt"
	"time"
)

// TestUserEmail generates a unique test email using timestamp
func TestUserEmail(suffix string) string {
	return fmt.Sprintf("test-%d-%s@bank.test", time.Now().UnixNano(), suffix)
}

// TestPassword is long enough for any policy a test configures.
const TestPassword = "TestPassword123!"
