// Package core holds the error taxonomy shared by every control-plane
// component. Component functions return plain Go errors;
// RPC handlers use CodeOf to recover an ErrorCode and place it on
// the outgoing response message.
package core

// ErrorCode is the stable, numeric-coded taxonomy surfaced on every
// gRPC response. Values are part of the wire contract: never renumber
// an existing entry.
type ErrorCode int32

const (
	ErrorOk ErrorCode = iota
	ErrorInvalidDeviceId
	ErrorInvalidHostId
	ErrorInvalidPortId
	ErrorInvalidModuleId
	ErrorInvalidPipelineId
	ErrorMissingDeviceConfig
	ErrorMissingPortConfig
	ErrorMissingHostConfig
	ErrorMissingSwitchConfig
	ErrorMissingModuleConfig
	ErrorUnsupportedFec
	ErrorUnsupportedLoopback
	ErrorUnsupportedConfig
	ErrorCmsBusy
	ErrorCmsIo
	ErrorCmsMsgError
	ErrorCmsScError
	ErrorModuleGpioRead
	ErrorModuleGpioWrite
	ErrorModulePageRead
	ErrorModuleMemRead
	ErrorModuleMemWrite
	ErrorModuleMemInvalidOffset
	ErrorModuleMemInvalidPage
	ErrorModuleMemInvalidCount
	ErrorInvalidTableName
	ErrorInvalidActionName
	ErrorTableRuleTooFewMatches
	ErrorTableRuleTooManyMatches
	ErrorTableRuleTooFewActionParameters
	ErrorTableRuleTooManyActionParameters
	ErrorTableRuleMatchInvalidKeyFormat
	ErrorTableRuleMatchInvalidMaskFormat
	ErrorTableRuleMatchInvalidPrefixLength
	ErrorTableRuleMatchRangeLowerTooBig
	ErrorTableRuleMatchRangeUpperTooBig
	ErrorUnknownTableRuleMatchType
	ErrorTableRulePackKeyTooBig
	ErrorTableRulePackParamsTooBig
	ErrorFailedInsertTableRule
	ErrorFailedDeleteTableRule
	ErrorFailedClearTable
	ErrorFailedClearAllTables
	ErrorUnknownBatchRequest
	ErrorUnknownBatchOp
	ErrorServerFailedGetTime
	ErrorServerInvalidDebugFlag
	ErrorFailedSetHostQueues
)

var errorCodeNames = map[ErrorCode]string{
	ErrorOk:                                "OK",
	ErrorInvalidDeviceId:                   "INVALID_DEVICE_ID",
	ErrorInvalidHostId:                     "INVALID_HOST_ID",
	ErrorInvalidPortId:                     "INVALID_PORT_ID",
	ErrorInvalidModuleId:                   "INVALID_MODULE_ID",
	ErrorInvalidPipelineId:                 "INVALID_PIPELINE_ID",
	ErrorMissingDeviceConfig:               "MISSING_DEVICE_CONFIG",
	ErrorMissingPortConfig:                 "MISSING_PORT_CONFIG",
	ErrorMissingHostConfig:                 "MISSING_HOST_CONFIG",
	ErrorMissingSwitchConfig:               "MISSING_SWITCH_CONFIG",
	ErrorMissingModuleConfig:               "MISSING_MODULE_CONFIG",
	ErrorUnsupportedFec:                    "UNSUPPORTED_FEC",
	ErrorUnsupportedLoopback:               "UNSUPPORTED_LOOPBACK",
	ErrorUnsupportedConfig:                 "UNSUPPORTED_CONFIG",
	ErrorCmsBusy:                           "CMS_BUSY",
	ErrorCmsIo:                             "CMS_IO",
	ErrorCmsMsgError:                       "CMS_MSG_ERROR",
	ErrorCmsScError:                        "CMS_SC_ERROR",
	ErrorModuleGpioRead:                    "MODULE_GPIO_READ",
	ErrorModuleGpioWrite:                   "MODULE_GPIO_WRITE",
	ErrorModulePageRead:                    "MODULE_PAGE_READ",
	ErrorModuleMemRead:                     "MODULE_MEM_READ",
	ErrorModuleMemWrite:                    "MODULE_MEM_WRITE",
	ErrorModuleMemInvalidOffset:            "MODULE_MEM_INVALID_OFFSET",
	ErrorModuleMemInvalidPage:              "MODULE_MEM_INVALID_PAGE",
	ErrorModuleMemInvalidCount:             "MODULE_MEM_INVALID_COUNT",
	ErrorInvalidTableName:                  "INVALID_TABLE_NAME",
	ErrorInvalidActionName:                 "INVALID_ACTION_NAME",
	ErrorTableRuleTooFewMatches:            "TABLE_RULE_TOO_FEW_MATCHES",
	ErrorTableRuleTooManyMatches:           "TABLE_RULE_TOO_MANY_MATCHES",
	ErrorTableRuleTooFewActionParameters:   "TABLE_RULE_TOO_FEW_ACTION_PARAMETERS",
	ErrorTableRuleTooManyActionParameters:  "TABLE_RULE_TOO_MANY_ACTION_PARAMETERS",
	ErrorTableRuleMatchInvalidKeyFormat:    "TABLE_RULE_MATCH_INVALID_KEY_FORMAT",
	ErrorTableRuleMatchInvalidMaskFormat:   "TABLE_RULE_MATCH_INVALID_MASK_FORMAT",
	ErrorTableRuleMatchInvalidPrefixLength: "TABLE_RULE_MATCH_INVALID_PREFIX_LENGTH",
	ErrorTableRuleMatchRangeLowerTooBig:    "TABLE_RULE_MATCH_RANGE_LOWER_TOO_BIG",
	ErrorTableRuleMatchRangeUpperTooBig:    "TABLE_RULE_MATCH_RANGE_UPPER_TOO_BIG",
	ErrorUnknownTableRuleMatchType:         "UNKNOWN_TABLE_RULE_MATCH_TYPE",
	ErrorTableRulePackKeyTooBig:            "TABLE_RULE_PACK_KEY_TOO_BIG",
	ErrorTableRulePackParamsTooBig:         "TABLE_RULE_PACK_PARAMS_TOO_BIG",
	ErrorFailedInsertTableRule:             "FAILED_INSERT_TABLE_RULE",
	ErrorFailedDeleteTableRule:             "FAILED_DELETE_TABLE_RULE",
	ErrorFailedClearTable:                  "FAILED_CLEAR_TABLE",
	ErrorFailedClearAllTables:              "FAILED_CLEAR_ALL_TABLES",
	ErrorUnknownBatchRequest:               "UNKNOWN_BATCH_REQUEST",
	ErrorUnknownBatchOp:                    "UNKNOWN_BATCH_OP",
	ErrorServerFailedGetTime:               "SERVER_FAILED_GET_TIME",
	ErrorServerInvalidDebugFlag:            "SERVER_INVALID_DEBUG_FLAG",
	ErrorFailedSetHostQueues:               "FAILED_SET_HOST_QUEUES",
}

func (c ErrorCode) String() string {
	if name, ok := errorCodeNames[c]; ok {
		return name
	}
	return "UNKNOWN"
}

// Error is the typed error carried across component boundaries. DevID
// and SubID let a handler populate the correlation fields carried
// on every user-visible failure; SubID is -1 when not
// applicable (e.g. a device-level error with no port/host/module).
type Error struct {
	Code  ErrorCode
	DevID int32
	SubID int32
	// Sub carries the controller-reported sub-code for CmsMsgError /
	// CmsScError, else zero.
	Sub int32
	Msg string
}

func (e *Error) Error() string {
	if e.Msg != "" {
		return e.Code.String() + ": " + e.Msg
	}
	return e.Code.String()
}

// NewError builds an Error with DevID/SubID correlation fields.
func NewError(code ErrorCode, devID, subID int32, msg string) *Error {
	return &Error{Code: code, DevID: devID, SubID: subID, Msg: msg}
}

// WithSub attaches a controller sub-code, used for CmsMsgError/CmsScError.
func (e *Error) WithSub(sub int32) *Error {
	e.Sub = sub
	return e
}

// CodeOf extracts the ErrorCode from err, defaulting to ErrorOk for a
// nil error and a generic code for an error that didn't originate
// from this package (should not happen on a handled path, but keeps
// the RPC layer total).
func CodeOf(err error, fallback ErrorCode) ErrorCode {
	if err == nil {
		return ErrorOk
	}
	var ce *Error
	if as(err, &ce) {
		return ce.Code
	}
	return fallback
}

// as walks err's single-error Unwrap chain looking for an *Error, a
// local stand-in for errors.As restricted to that one target type.
func as(err error, target **Error) bool {
	for err != nil {
		if ce, ok := err.(*Error); ok {
			*target = ce
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}
