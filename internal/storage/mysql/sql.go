package mysql

const insertPackageSQL = `
INSERT INTO packages
  (id, type, status, title, description, destinations, adult_price, fields, created_at, updated_at, published_at)
VALUES
  (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`

// Every column the typed record members are projected from lives in fields;
// the others are copies kept for filtering and ordering.
const updatePackageSQL = `
UPDATE packages SET
  type         = ?,
  status       = ?,
  title        = ?,
  description  = ?,
  destinations = ?,
  adult_price  = ?,
  fields       = ?,
  updated_at   = ?,
  published_at = ?
WHERE id = ?
`

const deletePackageSQL = `DELETE FROM packages WHERE id = ?`

// -----------------------------------------------------------------------------
// READ QUERIES
// -----------------------------------------------------------------------------

const selectPackageCols = `id, status, fields, created_at, updated_at, published_at`

const getPackageSQL = `SELECT ` + selectPackageCols + ` FROM packages WHERE id = ?`

const lockPackageSQL = `SELECT ` + selectPackageCols + ` FROM packages WHERE id = ? FOR UPDATE`

// orderColumns whitelists the ORDER BY targets; user input never reaches the
// query text.
var orderColumns = map[string]string{
	"createdAt":  "created_at",
	"updatedAt":  "updated_at",
	"title":      "title",
	"adultPrice": "adult_price",
}
