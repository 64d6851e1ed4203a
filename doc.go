// Package finance provides the types and functions to keep the books of a
// family: currencies and exchange rates, securities and their prices, a tree
// of cash and security accounts, categories, tags and payees, and the
// transactions between them.
//
// The core functionalities include:
//   - Record keeping: a RecordKeeper owns every entity and is the only way to
//     create, edit or remove them. Every mutation is validated before it is
//     applied, so that a RecordKeeper is always consistent: refunds never exceed
//     what they refund, securities are never sold before being held.
//   - Valuation: balances of accounts in any currency on any date, converted
//     through the exchange rate graph, and the net worth as a tree of assets.
//   - Statistics: cash flow and savings rate of a selection of accounts,
//     activity of tags, payees and categories, and the performance of
//     securities with a cost basis method.
//   - Persistence: encoding and decoding a RecordKeeper to and from an
//     ordered, human-readable JSON lines format.
//
// This package serves as the foundational logic for the `fin` command-line
// tool.
package finance
