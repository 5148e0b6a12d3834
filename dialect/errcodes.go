package dialect

import (
	"github.com/syssam/sqlmark"
)

// Native diagnostic code tables, keyed by SQLSTATE where the engine reports
// one, otherwise by the vendor numeric code rendered in decimal. Codes not
// present classify as Unknown.

// PostgreSQL SQLSTATE codes.
func postgresErrorCodes() map[string]sqlmark.ErrorKind {
	return map[string]sqlmark.ErrorKind{
		"23503": sqlmark.ForeignKeyViolation,
		"23505": sqlmark.UniqueViolation,
		"23514": sqlmark.CheckViolation,
		"40P01": sqlmark.DeadlockDetected,
		"55P03": sqlmark.LockTimeout, // lock_not_available
	}
}

// MySQL / MariaDB error numbers.
func mysqlErrorCodes() map[string]sqlmark.ErrorKind {
	return map[string]sqlmark.ErrorKind{
		"1062": sqlmark.UniqueViolation,     // ER_DUP_ENTRY
		"1451": sqlmark.ForeignKeyViolation, // cannot delete or update a parent row
		"1452": sqlmark.ForeignKeyViolation, // cannot add or update a child row
		"3819": sqlmark.CheckViolation,
		"1213": sqlmark.DeadlockDetected,
		"1205": sqlmark.LockTimeout,
	}
}

// SQLite primary and extended result codes.
func sqliteErrorCodes() map[string]sqlmark.ErrorKind {
	return map[string]sqlmark.ErrorKind{
		"787":  sqlmark.ForeignKeyViolation, // SQLITE_CONSTRAINT_FOREIGNKEY
		"1555": sqlmark.UniqueViolation,     // SQLITE_CONSTRAINT_PRIMARYKEY
		"2067": sqlmark.UniqueViolation,     // SQLITE_CONSTRAINT_UNIQUE
		"275":  sqlmark.CheckViolation,      // SQLITE_CONSTRAINT_CHECK
		"5":    sqlmark.LockTimeout,         // SQLITE_BUSY
		"6":    sqlmark.LockTimeout,         // SQLITE_LOCKED
	}
}

// SQL Server engine error numbers.
func sqlserverErrorCodes() map[string]sqlmark.ErrorKind {
	return map[string]sqlmark.ErrorKind{
		"547":  sqlmark.ForeignKeyViolation,
		"2601": sqlmark.UniqueViolation,
		"2627": sqlmark.UniqueViolation,
		"1205": sqlmark.DeadlockDetected,
		"1222": sqlmark.LockTimeout,
	}
}

// Oracle ORA- numbers without the prefix and leading zeros.
func oracleErrorCodes() map[string]sqlmark.ErrorKind {
	return map[string]sqlmark.ErrorKind{
		"1":     sqlmark.UniqueViolation,     // ORA-00001
		"2290":  sqlmark.CheckViolation,      // ORA-02290
		"2291":  sqlmark.ForeignKeyViolation, // parent key not found
		"2292":  sqlmark.ForeignKeyViolation, // child record found
		"60":    sqlmark.DeadlockDetected,    // ORA-00060
		"54":    sqlmark.LockTimeout,         // ORA-00054 resource busy
		"30006": sqlmark.LockTimeout,         // ORA-30006 resource busy on wait
	}
}
