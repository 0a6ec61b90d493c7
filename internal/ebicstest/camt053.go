package ebicstest

// IBAN is the account of the first statement of Camt053.
const IBAN = "CH4308307000289537312"

// OtherIBAN is the account of the second statement of Camt053.
const OtherIBAN = "CH9300762011623852957"

// Camt053 is a camt.053.001.04 statement with one statement for IBAN and one
// for OtherIBAN.
const Camt053 = `<?xml version="1.0" encoding="UTF-8"?>
<Document xmlns="urn:iso:std:iso:20022:tech:xsd:camt.053.001.04" xmlns:xsi="http://www.w3.org/2001/XMLSchema-instance">
  <BkToCstmrStmt>
    <GrpHdr>
      <MsgId>35e75effeaa74f579f97c8121bfa68ad</MsgId>
      <CreDtTm>2023-11-29T22:54:31.6579278+01:00</CreDtTm>
      <MsgPgntn>
        <PgNb>1</PgNb>
        <LastPgInd>true</LastPgInd>
      </MsgPgntn>
    </GrpHdr>
    <Stmt>
      <Id>35e75effeaa74f579f97c8121bfa68ad-1</Id>
      <ElctrncSeqNb>247</ElctrncSeqNb>
      <CreDtTm>2023-11-29T22:54:12.813</CreDtTm>
      <FrToDt>
        <FrDtTm>2023-11-29T00:00:00</FrDtTm>
        <ToDtTm>2023-11-29T00:00:00</ToDtTm>
      </FrToDt>
      <Acct>
        <Id>
          <IBAN>CH4308307000289537312</IBAN>
        </Id>
        <Ccy>CHF</Ccy>
        <Ownr>
          <Nm>Muster AG</Nm>
        </Ownr>
      </Acct>
      <Bal>
        <Tp>
          <CdOrPrtry>
            <Cd>OPBD</Cd>
          </CdOrPrtry>
        </Tp>
        <Amt Ccy="CHF">31709.14</Amt>
        <CdtDbtInd>CRDT</CdtDbtInd>
        <Dt>
          <Dt>2023-11-29</Dt>
        </Dt>
      </Bal>
      <Bal>
        <Tp>
          <CdOrPrtry>
            <Cd>CLBD</Cd>
          </CdOrPrtry>
        </Tp>
        <Amt Ccy="CHF">31709.09</Amt>
        <CdtDbtInd>CRDT</CdtDbtInd>
        <Dt>
          <Dt>2023-11-29</Dt>
        </Dt>
      </Bal>
      <Ntry>
        <Amt Ccy="CHF">0.05</Amt>
        <CdtDbtInd>DBIT</CdtDbtInd>
        <Sts>BOOK</Sts>
        <BookgDt>
          <Dt>2023-11-29</Dt>
        </BookgDt>
      </Ntry>
    </Stmt>
    <Stmt>
      <Id>35e75effeaa74f579f97c8121bfa68ad-2</Id>
      <ElctrncSeqNb>12</ElctrncSeqNb>
      <CreDtTm>2023-11-29T22:54:12.813</CreDtTm>
      <FrToDt>
        <FrDtTm>2023-11-29T00:00:00</FrDtTm>
        <ToDtTm>2023-11-29T00:00:00</ToDtTm>
      </FrToDt>
      <Acct>
        <Id>
          <IBAN>CH9300762011623852957</IBAN>
        </Id>
      </Acct>
      <Bal>
        <Tp>
          <CdOrPrtry>
            <Cd>OPBD</Cd>
          </CdOrPrtry>
        </Tp>
        <Amt Ccy="EUR">1200.00</Amt>
        <CdtDbtInd>DBIT</CdtDbtInd>
        <Dt>
          <Dt>2023-11-29</Dt>
        </Dt>
      </Bal>
    </Stmt>
  </BkToCstmrStmt>
</Document>
`
