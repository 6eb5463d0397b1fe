// Package wire defines the JSON schema spoken by SmartCast audio devices.
//
// Every endpoint answers with an object carrying an optional TYPE, an ITEMS list and
// a STATUS block:
//
//	{
//	  "STATUS": {"RESULT": "SUCCESS", "DETAIL": "Success"},
//	  "TYPE": "T_MENU_V1",
//	  "ITEMS": [
//	    {"CNAME": "volume", "TYPE": "T_VALUE_ABS_V1", "NAME": "Volume", "VALUE": 22, "HASHVAL": 2918298},
//	    {"CNAME": "reset", "TYPE": "T_ACTION_V1", "NAME": "Reset Audio", "HASHVAL": 1177}
//	  ]
//	}
//
// Mutations echo back the HASHVAL of the item they modify; the device rejects a
// request whose HASHVAL is stale.
//
// Some firmware answers with plain text (or nothing) on error paths, so a transport
// result is a Body holding either the decoded Response or the raw text.
package wire
