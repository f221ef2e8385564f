package tagger

var WrapLanguageError = wrapLanguageError
