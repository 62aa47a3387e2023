package flags

import (
	"fmt"
	"strings"

	"github.com/spf13/pflag"
)

const (
	toggleTrueCanonicalValue      = "true"
	toggleFalseCanonicalValue     = "false"
	toggleTypeName                = "bool"
	toggleParseErrorTemplate      = "invalid toggle value %q (use yes or no)"
	toggleTruePlaceholderLiteral  = "yes"
	toggleFalsePlaceholderLiteral = "no"
	longFlagPrefixLiteral         = "--"
	flagValueSeparatorLiteral     = "="
	shortFlagPrefixLiteral        = "-"
)

var toggleLiteralValues = map[string]bool{
	"true": true, "yes": true, "on": true, "1": true, "t": true, "y": true,
	"false": false, "no": false, "off": false, "0": false, "f": false, "n": false,
}

// AddToggleFlag registers a boolean flag that accepts yes/no style values and
// may be given without a value to mean yes.
func AddToggleFlag(flagSet *pflag.FlagSet, target *bool, name string, defaultValue bool, usage string) {
	if flagSet == nil || len(name) == 0 {
		return
	}

	placeholderDefault := toggleFalsePlaceholderLiteral
	if defaultValue {
		placeholderDefault = toggleTruePlaceholderLiteral
	}
	flagSet.Var(newToggleFlagValue(defaultValue, target), name, FormatChoiceUsage(placeholderDefault, []string{toggleTruePlaceholderLiteral, toggleFalsePlaceholderLiteral}, usage))
	flagSet.Lookup(name).NoOptDefVal = toggleTrueCanonicalValue
}

// NormalizeToggleArguments joins "--flag value" into "--flag=value" for every
// toggle flag registered in flagSets, so a detached yes/no is not mistaken for
// a positional argument. Arguments after "--" are left untouched.
func NormalizeToggleArguments(arguments []string, flagSets ...*pflag.FlagSet) []string {
	if len(arguments) == 0 {
		return nil
	}

	toggleNames := collectToggleNames(flagSets)
	normalized := make([]string, 0, len(arguments))
	for index := 0; index < len(arguments); index++ {
		current := arguments[index]
		if current == longFlagPrefixLiteral {
			normalized = append(normalized, arguments[index:]...)
			break
		}

		flagName := strings.TrimPrefix(current, longFlagPrefixLiteral)
		_, isToggle := toggleNames[flagName]
		if !strings.HasPrefix(current, longFlagPrefixLiteral) || !isToggle || index+1 >= len(arguments) {
			normalized = append(normalized, current)
			continue
		}

		nextArgument := arguments[index+1]
		if _, isToggleLiteral := toggleLiteralValues[strings.ToLower(strings.TrimSpace(nextArgument))]; !isToggleLiteral || strings.HasPrefix(nextArgument, shortFlagPrefixLiteral) {
			normalized = append(normalized, current)
			continue
		}

		normalized = append(normalized, current+flagValueSeparatorLiteral+nextArgument)
		index++
	}

	return normalized
}

func collectToggleNames(flagSets []*pflag.FlagSet) map[string]struct{} {
	toggleNames := map[string]struct{}{}
	for _, flagSet := range flagSets {
		if flagSet == nil {
			continue
		}
		flagSet.VisitAll(func(flag *pflag.Flag) {
			if _, isToggle := flag.Value.(*toggleFlagValue); isToggle {
				toggleNames[flag.Name] = struct{}{}
			}
		})
	}
	return toggleNames
}

type toggleFlagValue struct {
	currentValue bool
	target       *bool
}

func newToggleFlagValue(defaultValue bool, target *bool) *toggleFlagValue {
	if target != nil {
		*target = defaultValue
	}
	return &toggleFlagValue{currentValue: defaultValue, target: target}
}

func (value *toggleFlagValue) Set(rawValue string) error {
	normalizedValue := strings.ToLower(strings.TrimSpace(rawValue))
	if len(normalizedValue) == 0 {
		normalizedValue = toggleTrueCanonicalValue
	}

	parsedValue, recognized := toggleLiteralValues[normalizedValue]
	if !recognized {
		return fmt.Errorf(toggleParseErrorTemplate, rawValue)
	}

	value.currentValue = parsedValue
	if value.target != nil {
		*value.target = parsedValue
	}
	return nil
}

func (value *toggleFlagValue) String() string {
	if value != nil && value.currentValue {
		return toggleTrueCanonicalValue
	}
	return toggleFalseCanonicalValue
}

func (value *toggleFlagValue) Type() string {
	return toggleTypeName
}
