package xmlutils

// Element and attribute local names of the EBICS H004/H005 response envelope.
const (
	TagSegmentNumber          = "SegmentNumber"
	TagDigestValue            = "DigestValue"
	TagSignatureValue         = "SignatureValue"
	TagTransactionKey         = "TransactionKey"
	TagTimestampBankParameter = "TimestampBankParameter"
	TagOrderData              = "OrderData"
	TagDataDigest             = "DataDigest"
	TagSignatureData          = "SignatureData"

	AttrLastSegment      = "lastSegment"
	AttrSignatureVersion = "SignatureVersion"
	AttrCurrency         = "Ccy"
)

// Element local names of ISO20022 camt.053.
const (
	TagDocument      = "Document"
	TagBkToCstmrStmt = "BkToCstmrStmt"
	TagGrpHdr        = "GrpHdr"
	TagStmt          = "Stmt"
	TagBal           = "Bal"
)

// XPath expressions used to recognise camt.053 members.
const (
	XPathStatementRoot = "//BkToCstmrStmt"
	XPathStatementIBAN = "//BkToCstmrStmt/Stmt/Acct/Id/IBAN"
)
