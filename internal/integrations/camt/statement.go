// Package camt renders account statements as ISO 20022 camt.053 documents.
// Only the subset needed to identify the account, its balances and its entries is produced.
package camt

import (
	"fmt"
	"time"

	"github.com/Dan9191/bank-portal/internal/models"
	"github.com/beevik/etree"
	"github.com/shopspring/decimal"
)

const (
	Namespace       = "urn:iso:std:iso:20022:tech:xsd:camt.053.001.02"
	DefaultCurrency = "USD"

	dateTimeLayout = "2006-01-02T15:04:05Z"
	dateLayout     = "2006-01-02"
)

// Statement is the input of a rendered statement
type Statement struct {
	Account      models.Account
	HolderName   string
	Transactions []models.Transaction
	Currency     string
	GeneratedAt  time.Time
}

// Build assembles the statement document
func Build(s Statement) *etree.Document {
	ccy := s.Currency
	if ccy == "" {
		ccy = DefaultCurrency
	}
	created := s.GeneratedAt.UTC()

	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)

	root := doc.CreateElement("Document")
	root.CreateAttr("xmlns", Namespace)
	msg := root.CreateElement("BkToCstmrStmt")

	hdr := msg.CreateElement("GrpHdr")
	hdr.CreateElement("MsgId").SetText(fmt.Sprintf("STMT-%s-%d", s.Account.ID, created.Unix()))
	hdr.CreateElement("CreDtTm").SetText(created.Format(dateTimeLayout))

	stmt := msg.CreateElement("Stmt")
	stmt.CreateElement("Id").SetText(fmt.Sprintf("%s-%s", s.Account.AccountNumber, created.Format("20060102")))
	stmt.CreateElement("CreDtTm").SetText(created.Format(dateTimeLayout))

	acct := stmt.CreateElement("Acct")
	acct.CreateElement("Id").CreateElement("Othr").CreateElement("Id").SetText(s.Account.AccountNumber)
	acct.CreateElement("Tp").CreateElement("Prtry").SetText(string(s.Account.AccountType))
	acct.CreateElement("Ccy").SetText(ccy)
	if s.HolderName != "" {
		acct.CreateElement("Ownr").CreateElement("Nm").SetText(s.HolderName)
	}

	addBalance(stmt, "CLBD", s.Account.Balance, ccy, created)
	addBalance(stmt, "CLAV", s.Account.AvailableBalance, ccy, created)

	for _, tx := range s.Transactions {
		addEntry(stmt, tx, ccy)
	}

	doc.Indent(2)
	return doc
}

// Render returns the statement as XML bytes
func Render(s Statement) ([]byte, error) {
	b, err := Build(s).WriteToBytes()
	if err != nil {
		return nil, fmt.Errorf("failed to write statement: %w", err)
	}
	return b, nil
}

func addBalance(stmt *etree.Element, code string, amount decimal.Decimal, ccy string, at time.Time) {
	bal := stmt.CreateElement("Bal")
	bal.CreateElement("Tp").CreateElement("CdOrPrtry").CreateElement("Cd").SetText(code)
	addAmount(bal, amount.Abs(), ccy)
	bal.CreateElement("CdtDbtInd").SetText(indicator(amount.IsNegative()))
	bal.CreateElement("Dt").CreateElement("Dt").SetText(at.Format(dateLayout))
}

func addEntry(stmt *etree.Element, tx models.Transaction, ccy string) {
	ntry := stmt.CreateElement("Ntry")
	ntry.CreateElement("NtryRef").SetText(tx.ID)
	addAmount(ntry, tx.Amount.Abs(), ccy)
	ntry.CreateElement("CdtDbtInd").SetText(indicator(tx.Type != models.TransactionCredit || tx.Amount.IsNegative()))
	ntry.CreateElement("Sts").SetText(entryStatus(tx.Status))
	ntry.CreateElement("BookgDt").CreateElement("DtTm").SetText(tx.CreatedAt.UTC().Format(dateTimeLayout))
	if tx.Description != "" {
		ntry.CreateElement("AddtlNtryInf").SetText(tx.Description)
	}
}

func addAmount(parent *etree.Element, amount decimal.Decimal, ccy string) {
	amt := parent.CreateElement("Amt")
	amt.CreateAttr("Ccy", ccy)
	amt.SetText(amount.StringFixed(2))
}

func indicator(debit bool) string {
	if debit {
		return "DBIT"
	}
	return "CRDT"
}

func entryStatus(status string) string {
	switch status {
	case "completed":
		return "BOOK"
	case "pending":
		return "PDNG"
	}
	return "INFO"
}
