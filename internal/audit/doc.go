// Package audit keeps the edit history of rules and dashboards.
//
// Every rule edit fans out to several controllers and may partly fail, so
// each entry records which controllers were touched and whether any
// backend call failed. Rule edits are recorded by the rulegroup service and
// dashboard edits by the layout service, both through a Recorder.
package audit
