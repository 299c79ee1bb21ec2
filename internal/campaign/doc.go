// Package campaign orchestrates a multi-stage generation run: optional
// source image analysis, then one generated image and one generated
// video per target demographic, processed strictly in input order with
// progress text published to the run's session. Individual failures are
// reported and skipped so one demographic never blocks the rest.
package campaign
