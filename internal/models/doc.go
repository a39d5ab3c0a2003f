// package models defines the data model for the workout migration engine
package models
