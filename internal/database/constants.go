package database

// Registration lock parameters. Every backend serializes check-then-insert
// under a single named lock.
const (
	// RegistrationLockKey is the PostgreSQL advisory lock key ("facereg" in ASCII).
	RegistrationLockKey int64 = 0x66616365726567

	// RegistrationLockName is the MariaDB GET_LOCK name.
	RegistrationLockName = "facereg_registration"

	// RegistrationLockTimeoutSeconds bounds how long a registration waits for the lock.
	RegistrationLockTimeoutSeconds = 10
)

// MaxStudentIDLength matches the student_id column width.
const MaxStudentIDLength = 64
