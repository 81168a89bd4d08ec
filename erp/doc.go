// Package erp delivers relay messages to the downstream ERP webhook.
//
// The JSON payload of a message is sent as an application/x-www-form-urlencoded body with nested
// keys in bracket notation (item[sku]=A1, global_ids[0]=g1). A delivery succeeds only when the
// response body is a JSON object whose success field is the boolean true.
package erp
