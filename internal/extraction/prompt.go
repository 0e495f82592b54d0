package extraction

const visionPrompt = `You are reading one page of a North Carolina foreclosure court filing.
Extract only values printed on this page. Do not infer or compute values.

Return a JSON object with these keys, using null for anything not present:
{
  "property_address": "street address of the foreclosed property",
  "legal_description": "the legal description of the parcel",
  "bid_amount": 0.00,
  "minimum_next_bid": 0.00,
  "sale_date": "YYYY-MM-DD",
  "document_date": "YYYY-MM-DD",
  "confidence": "high | medium | low"
}

bid_amount is the amount of the most recent bid or sale price reported on the page.
minimum_next_bid is the minimum amount of the next upset bid when the page states one.
document_date is the date the filing was signed or filed.`
